package cloud189

import (
	"context"
	"net/http"
	"strconv"

	coreerrors "github.com/wes-lin/cloud189-sdk/core/errors"
)

// initMultiUploadRequest 上传初始化参数。
// FileMd5/SliceMd5 均提供时服务端立即校验秒传，否则延迟校验（lazyCheck）。
type initMultiUploadRequest struct {
	ParentFolderID string
	FileName       string
	FileSize       int64
	SliceSize      int64
	FileMd5        string
	SliceMd5       string
	FamilyID       int64
}

func (c *Client) initMultiUpload(ctx context.Context, req initMultiUploadRequest) (*UploadInitResponse, error) {
	params := map[string]string{
		"parentFolderId": req.ParentFolderID,
		"fileName":       req.FileName,
		"fileSize":       strconv.FormatInt(req.FileSize, 10),
		"sliceSize":      strconv.FormatInt(req.SliceSize, 10),
	}
	if req.FileMd5 != "" && req.SliceMd5 != "" {
		params["fileMd5"] = req.FileMd5
		params["sliceMd5"] = req.SliceMd5
	} else {
		params["lazyCheck"] = "1"
	}
	path := "/person/initMultiUpload"
	if req.FamilyID != 0 {
		params["familyId"] = strconv.FormatInt(req.FamilyID, 10)
		path = "/family/initMultiUpload"
	}
	var rsp UploadInitResponse
	if err := c.do(ctx, ZoneUpload, http.MethodGet, c.uploadBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	if rsp.Data.UploadFileID == "" {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidState, "cloud189: 初始化上传未返回 uploadFileId")
	}
	return &rsp, nil
}

func (c *Client) checkTransSecond(ctx context.Context, fileMd5, sliceMd5, uploadFileID string, familyID int64) (*UploadInitResponse, error) {
	params := map[string]string{
		"fileMd5":      fileMd5,
		"sliceMd5":     sliceMd5,
		"uploadFileId": uploadFileID,
	}
	path := "/person/checkTransSecond"
	if familyID != 0 {
		path = "/family/checkTransSecond"
	}
	var rsp UploadInitResponse
	if err := c.do(ctx, ZoneUpload, http.MethodGet, c.uploadBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

func (c *Client) getMultiUploadURL(ctx context.Context, partInfo, uploadFileID string, familyID int64) (*MultiUploadURLsResponse, error) {
	params := map[string]string{
		"partInfo":     partInfo,
		"uploadFileId": uploadFileID,
	}
	path := "/person/getMultiUploadUrls"
	if familyID != 0 {
		path = "/family/getMultiUploadUrls"
	}
	var rsp MultiUploadURLsResponse
	if err := c.do(ctx, ZoneUpload, http.MethodGet, c.uploadBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

func (c *Client) commitMultiUpload(ctx context.Context, fileMd5, sliceMd5, uploadFileID string, lazyCheck bool, familyID int64) (*UploadCommitResponse, error) {
	params := map[string]string{
		"fileMd5":      fileMd5,
		"sliceMd5":     sliceMd5,
		"uploadFileId": uploadFileID,
	}
	if lazyCheck {
		params["lazyCheck"] = "1"
	}
	path := "/person/commitMultiUploadFile"
	if familyID != 0 {
		path = "/family/commitMultiUploadFile"
	}
	var rsp UploadCommitResponse
	if err := c.do(ctx, ZoneUpload, http.MethodGet, c.uploadBaseURL, path, params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}
