// 手工联调入口：从环境变量读取凭证，列出根目录并上传文件。
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wes-lin/cloud189-sdk/core/cloud189"
	"github.com/wes-lin/cloud189-sdk/core/store"
)

const rootFolderID = "-11"

type logger struct{}

func (logger) Debugf(f string, a ...any) { fmt.Printf("[DEBUG] "+f+"\n", a...) }
func (logger) Errorf(f string, a ...any) { fmt.Printf("[ERROR] "+f+"\n", a...) }

func main() {
	username := os.Getenv("CLOUD189_USERNAME")
	password := os.Getenv("CLOUD189_PASSWORD")
	sson := os.Getenv("CLOUD189_SSON")

	tokenPath := filepath.Join(os.TempDir(), "cloud189", "token.json")
	tokenStore, err := store.NewFileTokenStore(tokenPath)
	if err != nil {
		fmt.Printf("初始化凭证存储失败: %v\n", err)
		os.Exit(1)
	}

	client, err := cloud189.NewClient(cloud189.Config{
		Username:   username,
		Password:   password,
		SsonCookie: sson,
		TokenStore: tokenStore,
	}, cloud189.WithLogger(logger{}))
	if err != nil {
		fmt.Printf("创建客户端失败: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sizeInfo, err := client.GetUserSizeInfo(ctx)
	if err != nil {
		fmt.Printf("获取容量失败: %v\n", err)
		os.Exit(1)
	}
	if sizeInfo.CloudCapacityInfo != nil {
		fmt.Printf("个人容量: 已用 %d / 共 %d\n",
			sizeInfo.CloudCapacityInfo.UsedSize, sizeInfo.CloudCapacityInfo.TotalSize)
	}

	files, err := client.ListFiles(ctx, cloud189.ListFilesRequest{FolderID: rootFolderID})
	if err != nil {
		fmt.Printf("列出文件失败: %v\n", err)
		os.Exit(1)
	}
	if files.FileListAO != nil {
		for _, folder := range files.FileListAO.FolderList {
			fmt.Printf("[目录] %s (%s)\n", folder.Name, folder.ID)
		}
		for _, file := range files.FileListAO.FileList {
			fmt.Printf("[文件] %s (%d 字节)\n", file.Name, file.Size)
		}
	}

	if uploadPath := os.Getenv("CLOUD189_UPLOAD_FILE"); uploadPath != "" {
		result, err := client.Upload(ctx, cloud189.UploadRequest{
			ParentFolderID: rootFolderID,
			FilePath:       uploadPath,
		}, cloud189.UploadCallbacks{
			OnProgress: func(pct float64) { fmt.Printf("上传进度: %.1f%%\n", pct) },
			OnError:    func(err error) { fmt.Printf("上传失败: %v\n", err) },
		})
		if err != nil {
			os.Exit(1)
		}
		if result.File != nil {
			fmt.Printf("上传完成: %s (%s)\n", result.File.FileName, result.File.UserFileID)
		}
	}
}
