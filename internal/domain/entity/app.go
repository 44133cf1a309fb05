// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// App 应用实体，一次代码生成的归属单元
type App struct {
	ID          int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string         `json:"name" gorm:"type:varchar(255)"`
	Cover       string         `json:"cover,omitempty" gorm:"type:varchar(512)"`
	InitPrompt  string         `json:"init_prompt" gorm:"type:text;not null"`
	CodeGenType string         `json:"code_gen_type" gorm:"type:varchar(32);not null"`
	DeployKey   string         `json:"deploy_key,omitempty" gorm:"type:varchar(32);uniqueIndex:idx_apps_deploy_key,where:deploy_key <> ''"`
	DeployedAt  *time.Time     `json:"deployed_at,omitempty"`
	Priority    int            `json:"priority" gorm:"default:0"`
	Tags        pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	UserID      int64          `json:"user_id" gorm:"index;not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 指定表名
func (App) TableName() string {
	return "apps"
}

// appNameMaxRunes 由初始提示词截取应用名的长度
const appNameMaxRunes = 12

// NewApp 创建新应用，名称取初始提示词前缀
func NewApp(userID int64, initPrompt, codeGenType string) *App {
	name := []rune(initPrompt)
	if len(name) > appNameMaxRunes {
		name = name[:appNameMaxRunes]
	}
	now := time.Now()
	return &App{
		Name:        string(name),
		InitPrompt:  initPrompt,
		CodeGenType: codeGenType,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOwnedBy 判断应用是否属于指定用户
func (a *App) IsOwnedBy(userID int64) bool {
	return a.UserID == userID
}

// MarkDeployed 记录部署信息
func (a *App) MarkDeployed(deployKey string, at time.Time) {
	a.DeployKey = deployKey
	a.DeployedAt = &at
	a.UpdatedAt = at
}
