package cloud189

import (
	"context"
	"net/http"
	"strconv"
)

// MediaType 文件媒体类型过滤。
type MediaType int

const (
	MediaAll MediaType = iota
	MediaImage
	MediaMusic
	MediaVideo
	MediaTxt
)

// OrderBy 文件列表排序方式。
type OrderBy int

const (
	OrderByName OrderBy = iota + 1
	OrderBySize
	OrderByLastOpTime
)

// ListFilesRequest 文件列表查询参数，零值字段使用默认值。
type ListFilesRequest struct {
	FolderID   string
	PageNum    int
	PageSize   int
	MediaType  MediaType
	OrderBy    OrderBy
	Descending bool
	FamilyID   int64
}

// ListFiles 查询文件列表，FamilyID 非零时走家庭接口。
func (c *Client) ListFiles(ctx context.Context, req ListFilesRequest) (*FileListResponse, error) {
	if req.PageNum <= 0 {
		req.PageNum = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 60
	}
	if req.OrderBy == 0 {
		req.OrderBy = OrderByLastOpTime
		req.Descending = true
	}
	params := map[string]string{
		"pageNum":    strconv.Itoa(req.PageNum),
		"pageSize":   strconv.Itoa(req.PageSize),
		"mediaType":  strconv.Itoa(int(req.MediaType)),
		"orderBy":    strconv.Itoa(int(req.OrderBy)),
		"descending": strconv.FormatBool(req.Descending),
		"folderId":   req.FolderID,
		"iconOption": "5",
	}
	path := "/open/file/listFiles.action"
	if req.FamilyID != 0 {
		params["familyId"] = strconv.FormatInt(req.FamilyID, 10)
		path = "/open/family/file/listFiles.action"
	}
	var rsp FileListResponse
	if err := c.do(ctx, ZoneAPI, http.MethodGet, c.apiBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// CreateFolderRequest 创建文件夹参数。
type CreateFolderRequest struct {
	FolderName     string
	ParentFolderID string
	FamilyID       int64
}

// CreateFolder 创建文件夹，FamilyID 非零时走家庭接口。
func (c *Client) CreateFolder(ctx context.Context, req CreateFolderRequest) (*FolderInfo, error) {
	var (
		path   string
		params map[string]string
	)
	if req.FamilyID != 0 {
		path = "/open/family/file/createFolder.action"
		params = map[string]string{
			"folderName": req.FolderName,
			"parentId":   req.ParentFolderID,
			"familyId":   strconv.FormatInt(req.FamilyID, 10),
		}
	} else {
		path = "/open/file/createFolder.action"
		params = map[string]string{
			"folderName":     req.FolderName,
			"parentFolderId": req.ParentFolderID,
		}
	}
	var rsp FolderInfo
	if err := c.do(ctx, ZoneAPI, http.MethodPost, c.apiBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// RenameFolderRequest 重命名文件夹参数。
type RenameFolderRequest struct {
	FolderID   string
	FolderName string
	FamilyID   int64
}

// RenameFolder 重命名文件夹，FamilyID 非零时走家庭接口。
func (c *Client) RenameFolder(ctx context.Context, req RenameFolderRequest) (*FolderInfo, error) {
	var (
		path   string
		params map[string]string
	)
	if req.FamilyID != 0 {
		path = "/open/family/file/renameFolder.action"
		params = map[string]string{
			"destFolderName": req.FolderName,
			"folderId":       req.FolderID,
			"familyId":       strconv.FormatInt(req.FamilyID, 10),
		}
	} else {
		path = "/open/file/renameFolder.action"
		params = map[string]string{
			"destFolderName": req.FolderName,
			"folderId":       req.FolderID,
		}
	}
	var rsp FolderInfo
	if err := c.do(ctx, ZoneAPI, http.MethodPost, c.apiBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// GetFileDownloadURL 获取文件下载地址。
func (c *Client) GetFileDownloadURL(ctx context.Context, fileID string) (string, error) {
	params := map[string]string{"fileId": fileID}
	var rsp struct {
		CodeResponse
		FileDownloadURL string `json:"fileDownloadUrl"`
	}
	if err := c.do(ctx, ZoneAPI, http.MethodGet, c.apiBaseURL, "/open/file/getFileDownloadUrl.action", params, &rsp); err != nil {
		return "", err
	}
	return rsp.FileDownloadURL, nil
}
