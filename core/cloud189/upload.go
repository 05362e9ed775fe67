package cloud189

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wes-lin/cloud189-sdk/core/crypto"
	coreerrors "github.com/wes-lin/cloud189-sdk/core/errors"
)

// uploadConcurrency 同时在途的分片上传上限。
const uploadConcurrency = 5

// PartSize 按文件大小计算分片大小。
// 默认 10MiB；文件超过 10MiB*999 时用 20MiB；
// 超过 10MiB*2*999 时按 2000 片上限放大分片，且不小于 50MiB。
func PartSize(size int64) int64 {
	const slice = int64(DefaultSliceSize)
	if size > slice*2*maxPartCount {
		limit := size / 1999
		n := limit / slice
		if limit%slice != 0 {
			n++
		}
		if n < 5 {
			n = 5
		}
		return n * slice
	}
	if size > slice*maxPartCount {
		return 2 * slice
	}
	return slice
}

// UploadRequest 文件上传参数，FamilyID 非零时走家庭接口。
type UploadRequest struct {
	ParentFolderID string
	FilePath       string
	FamilyID       int64
}

// Upload 上传本地文件。
// 流程为单次顺序读取计算整文件与分片 MD5，之后按分片数选择
// 单分片或多分片路径；服务端已存在相同内容时秒传，不再传输字节。
func (c *Client) Upload(ctx context.Context, req UploadRequest, callbacks UploadCallbacks) (*UploadCommitResponse, error) {
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	size := info.Size()
	fileName := encodeFileName(filepath.Base(req.FilePath))
	sliceSize := PartSize(size)

	fileMd5, chunkMd5s, err := crypto.DigestFileChunks(req.FilePath, sliceSize)
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	plan := uploadPlan{
		req:       req,
		fileName:  fileName,
		fileSize:  size,
		sliceSize: sliceSize,
		fileMd5:   fileMd5,
		chunkMd5s: chunkMd5s,
	}
	if len(chunkMd5s) == 1 {
		return c.singleUpload(ctx, plan, callbacks)
	}
	return c.multiUpload(ctx, plan, callbacks)
}

// uploadPlan 一次上传的完整计划，仅在单次 Upload 调用内有效。
type uploadPlan struct {
	req       UploadRequest
	fileName  string
	fileSize  int64
	sliceSize int64
	fileMd5   string
	chunkMd5s []string
}

func (c *Client) singleUpload(ctx context.Context, plan uploadPlan, callbacks UploadCallbacks) (*UploadCommitResponse, error) {
	init, err := c.initMultiUpload(ctx, initMultiUploadRequest{
		ParentFolderID: plan.req.ParentFolderID,
		FileName:       plan.fileName,
		FileSize:       plan.fileSize,
		SliceSize:      plan.sliceSize,
		FileMd5:        plan.fileMd5,
		SliceMd5:       plan.fileMd5,
		FamilyID:       plan.req.FamilyID,
	})
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	uploadFileID := init.Data.UploadFileID.String()

	if init.Data.Exists() {
		c.logger.Debugf("cloud189: 文件 %s 秒传: %s", plan.req.FilePath, uploadFileID)
		reportProgress(callbacks, 100)
	} else {
		data, err := os.ReadFile(plan.req.FilePath)
		if err != nil {
			return nil, failUpload(callbacks, err)
		}
		err = c.partUpload(ctx, 1, plan.fileMd5, data, uploadFileID, plan.req.FamilyID, callbacks.OnProgress)
		if err != nil {
			return nil, failUpload(callbacks, err)
		}
	}

	commit, err := c.commitMultiUpload(ctx, plan.fileMd5, plan.fileMd5, uploadFileID, false, plan.req.FamilyID)
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	if callbacks.OnComplete != nil {
		callbacks.OnComplete(commit)
	}
	return commit, nil
}

func (c *Client) multiUpload(ctx context.Context, plan uploadPlan, callbacks UploadCallbacks) (*UploadCommitResponse, error) {
	sliceMd5 := crypto.DigestString(strings.Join(plan.chunkMd5s, "\n"))

	init, err := c.initMultiUpload(ctx, initMultiUploadRequest{
		ParentFolderID: plan.req.ParentFolderID,
		FileName:       plan.fileName,
		FileSize:       plan.fileSize,
		SliceSize:      plan.sliceSize,
		FamilyID:       plan.req.FamilyID,
	})
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	uploadFileID := init.Data.UploadFileID.String()

	check, err := c.checkTransSecond(ctx, plan.fileMd5, sliceMd5, uploadFileID, plan.req.FamilyID)
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	if check.Data.Exists() {
		c.logger.Debugf("cloud189: 分片文件 %s 秒传: %s", plan.req.FilePath, uploadFileID)
		reportProgress(callbacks, 100)
	} else {
		if err := c.uploadChunks(ctx, plan, uploadFileID, callbacks); err != nil {
			return nil, failUpload(callbacks, err)
		}
	}

	commit, err := c.commitMultiUpload(ctx, plan.fileMd5, sliceMd5, uploadFileID, true, plan.req.FamilyID)
	if err != nil {
		return nil, failUpload(callbacks, err)
	}
	if callbacks.OnComplete != nil {
		callbacks.OnComplete(commit)
	}
	return commit, nil
}

// uploadChunks 通过容量为 uploadConcurrency 的协程池并发上传所有分片。
// 每个分片从共享只读句柄读取各自的字节区间，任一分片失败即整体中止。
func (c *Client) uploadChunks(ctx context.Context, plan uploadPlan, uploadFileID string, callbacks UploadCallbacks) error {
	file, err := os.Open(plan.req.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	chunkCount := len(plan.chunkMd5s)
	var (
		mu       sync.Mutex
		progress = make([]float64, chunkCount)
	)
	// 整体进度为各分片进度的算术平均，未开始的分片按 0 计。
	report := func(i int, pct float64) {
		if callbacks.OnProgress == nil {
			return
		}
		mu.Lock()
		progress[i] = pct
		var sum float64
		for _, p := range progress {
			sum += p
		}
		total := sum / float64(chunkCount)
		mu.Unlock()
		callbacks.OnProgress(total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i := 0; i < chunkCount; i++ {
		i := i
		g.Go(func() error {
			offset := int64(i) * plan.sliceSize
			length := plan.sliceSize
			if remain := plan.fileSize - offset; remain < length {
				length = remain
			}
			buf := make([]byte, length)
			if _, err := file.ReadAt(buf, offset); err != nil {
				return err
			}
			return c.partUpload(gctx, i+1, plan.chunkMd5s[i], buf, uploadFileID, plan.req.FamilyID, func(pct float64) {
				report(i, pct)
			})
		})
	}
	return g.Wait()
}

// partUpload 获取分片的预签名地址并 PUT 分片数据。
func (c *Client) partUpload(ctx context.Context, partNumber int, chunkMd5 string, data []byte, uploadFileID string, familyID int64, onProgress func(float64)) error {
	md5Base64, err := crypto.HexToBase64(chunkMd5)
	if err != nil {
		return err
	}
	partInfo := fmt.Sprintf("%d-%s", partNumber, md5Base64)
	c.logger.Debugf("cloud189: 上传分片 %d", partNumber)

	urls, err := c.getMultiUploadURL(ctx, partInfo, uploadFileID, familyID)
	if err != nil {
		return err
	}
	info, ok := urls.UploadURLs[fmt.Sprintf("partNumber_%d", partNumber)]
	if !ok || info.RequestURL == "" {
		return coreerrors.New(coreerrors.ErrCodeInvalidState,
			fmt.Sprintf("cloud189: 缺少分片 %d 的上传地址", partNumber))
	}

	body := io.Reader(bytes.NewReader(data))
	if onProgress != nil {
		body = &progressReader{r: body, total: int64(len(data)), report: onProgress}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, info.RequestURL, body)
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(data))
	for key, value := range parseRequestHeader(info.RequestHeader) {
		req.Header.Set(key, value)
	}

	resp, err := c.http.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("cloud189: 分片 %d 上传失败，状态码 %d", partNumber, resp.StatusCode)
	}
	return nil
}

// parseRequestHeader 解析服务端以 & 连接下发的上传头，值内允许出现 =。
func parseRequestHeader(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		headers[k] = v
	}
	return headers
}

// progressReader 在读取上传体时按已传输字节上报分片进度。
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(float64(p.read) * 100 / float64(p.total))
	}
	return n, err
}

func reportProgress(callbacks UploadCallbacks, percent float64) {
	if callbacks.OnProgress != nil {
		callbacks.OnProgress(percent)
	}
}

// failUpload 触发 OnError 后原样返回错误，保证回调至多一次。
func failUpload(callbacks UploadCallbacks, err error) error {
	if callbacks.OnError != nil {
		callbacks.OnError(err)
	}
	return err
}

// encodeFileName 文件名按 URL 编码后再拼入查询参数。
func encodeFileName(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
