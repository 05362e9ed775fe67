package cloud189

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	coreerrors "github.com/wes-lin/cloud189-sdk/core/errors"
)

// 批量任务轮询的默认参数。
const (
	defaultTaskPollInterval = 500 * time.Millisecond
	defaultTaskPollAttempts = 120
)

// CreateBatchTask 提交批量任务（移动/复制/删除）并轮询到终态，
// 返回处理成功的文件 id 列表。
func (c *Client) CreateBatchTask(ctx context.Context, req CreateBatchTaskRequest) ([]int64, error) {
	if len(req.TaskInfos) == 0 {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidArgument, "cloud189: 批量任务缺少文件")
	}
	infos, err := json.Marshal(req.TaskInfos)
	if err != nil {
		return nil, err
	}
	params := map[string]string{
		"type":      string(req.Type),
		"taskInfos": string(infos),
	}
	if req.TargetFolderID != "" {
		params["targetFolderId"] = req.TargetFolderID
	}
	if req.FamilyID != 0 {
		params["familyId"] = strconv.FormatInt(req.FamilyID, 10)
	}

	var rsp createBatchTaskResponse
	if err := c.do(ctx, ZoneAPI, http.MethodPost, c.apiBaseURL, "/open/batch/createBatchTask.action", params, &rsp); err != nil {
		c.logger.Errorf("cloud189: 提交批量任务失败: %v", err)
		return nil, err
	}
	return c.CheckTaskStatus(ctx, req.Type, rsp.TaskID)
}

// CheckTaskStatus 按固定间隔轮询批量任务状态，直到终态或预算耗尽。
// 状态 4 为成功，2 为文件重名（记录日志，返回空结果），
// -1 为服务端异常（记录日志后继续轮询）。预算耗尽按超时处理，
// 返回空结果而非错误；单次轮询的网络错误记录日志后进入下一轮。
func (c *Client) CheckTaskStatus(ctx context.Context, taskType BatchTaskType, taskID string) ([]int64, error) {
	return c.checkTaskStatus(ctx, taskType, taskID, defaultTaskPollAttempts, defaultTaskPollInterval)
}

func (c *Client) checkTaskStatus(ctx context.Context, taskType BatchTaskType, taskID string, maxAttempts int, interval time.Duration) ([]int64, error) {
	params := map[string]string{
		"type":   string(taskType),
		"taskId": taskID,
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var rsp checkBatchTaskResponse
		err := c.do(ctx, ZoneAPI, http.MethodPost, c.apiBaseURL, "/open/batch/checkBatchTask.action", params, &rsp)
		if err != nil {
			c.logger.Errorf("cloud189: 第 %d 次查询任务 %s 状态失败: %v", attempt+1, taskID, err)
		} else {
			switch rsp.TaskStatus {
			case batchTaskStatusSuccess:
				return rsp.SuccessedFileIDList, nil
			case batchTaskStatusNameConflict:
				c.logger.Errorf("cloud189: 任务 %s 存在文件重名", taskID)
				return nil, nil
			case batchTaskStatusAnomaly:
				c.logger.Errorf("cloud189: 任务 %s 状态异常", taskID)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	c.logger.Errorf("cloud189: 任务 %s 轮询超时", taskID)
	return nil, nil
}
