package apps

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ai-code-mother/internal/domain/entity"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// 打包时忽略的目录与文件
var (
	ignoredDirs  = map[string]bool{"node_modules": true, ".git": true, "dist": true, "target": true, ".mvn": true, ".idea": true, ".vscode": true}
	ignoredFiles = map[string]bool{".DS_Store": true, ".env": true}
	ignoredExts  = []string{".log", ".tmp", ".cache"}
)

// Archive 待下载的应用源码
type Archive struct {
	Filename string
	Dir      string
}

// PrepareDownload 校验权限并定位源码目录，仅创建者
func (s *Service) PrepareDownload(ctx context.Context, appID int64, user *entity.User) (*Archive, error) {
	app, err := s.getOwned(ctx, appID, user)
	if err != nil {
		return nil, err
	}
	mode, err := appMode(app)
	if err != nil {
		return nil, err
	}
	dir, err := s.sourceDir(mode, app.ID)
	if err != nil {
		return nil, err
	}
	return &Archive{Filename: strconv.FormatInt(app.ID, 10) + ".zip", Dir: dir}, nil
}

// WriteTo 将源码目录打包为 zip 写入 w
func (a *Archive) WriteTo(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	err := filepath.WalkDir(a.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == a.Dir {
			return nil
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignoredFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(a.Dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		logger.Error(ctx, "failed to archive app source", err, "dir", a.Dir)
		return apperrors.Wrap(err, apperrors.CodeStorageError, "打包源码失败")
	}
	return zw.Close()
}

func ignoredFile(name string) bool {
	if ignoredFiles[name] {
		return true
	}
	for _, ext := range ignoredExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
