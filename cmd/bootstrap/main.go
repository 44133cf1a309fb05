// Package main 初始化数据库表结构并创建管理员账号
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ai-code-mother/internal/config"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 同步表结构
	if err := dataLayer.PgClient.AutoMigrate(ctx,
		&entity.User{},
		&entity.App{},
		&entity.ChatHistory{},
		&entity.GenerationJob{},
		&entity.LLMUsageEvent{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated.")

	// 4. 创建首个管理员
	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123" // 生产环境请务必通过环境变量设置
	}

	exists, err := dataLayer.UserRepo.ExistsByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("failed to check admin existence: %v", err)
	}
	if exists {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	fmt.Printf("Creating admin user: %s...\n", adminEmail)
	admin := entity.NewUser(adminEmail, "System Admin")
	admin.Role = entity.UserRoleAdmin
	if err := admin.SetPassword(adminPassword); err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}
	if err := dataLayer.UserRepo.Create(ctx, admin); err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}
	fmt.Println("Admin user created successfully.")
	fmt.Println("Bootstrap completed successfully.")
}
