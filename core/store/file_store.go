package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileTokenStore 将凭证以 JSON 形式保存到本地文件，
// 进程重启后可以继续使用已有的登录状态。
type FileTokenStore struct {
	mu    sync.Mutex
	path  string
	token Token
}

// NewFileTokenStore 创建文件存储，文件不存在时按空凭证初始化。
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		return nil, errors.New("store: 文件路径不能为空")
	}
	s := &FileTokenStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("store: 读取凭证文件失败: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.token); err != nil {
			return nil, fmt.Errorf("store: 解析凭证文件失败: %w", err)
		}
	}
	return s, nil
}

func (s *FileTokenStore) Get() (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *FileTokenStore) Update(t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = merge(s.token, t)
	return s.persist()
}

func (s *FileTokenStore) persist() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("store: 创建目录失败: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.token, "", "  ")
	if err != nil {
		return fmt.Errorf("store: 序列化凭证失败: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("store: 写入凭证文件失败: %w", err)
	}
	return nil
}
