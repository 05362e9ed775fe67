package cloud189

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString 兼容字符串和数字的 JSON 字段。
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
	}
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// CodeResponse 兼容 code/res_code 返回结构，实现业务错误检测。
type CodeResponse struct {
	CodeValue  string     `json:"code,omitempty"`
	Msg        string     `json:"msg,omitempty"`
	ResCode    FlexString `json:"res_code,omitempty"`
	ResMessage string     `json:"res_message,omitempty"`
}

// IsSuccess 判断业务码是否为成功。
func (r *CodeResponse) IsSuccess() bool {
	if r == nil {
		return true
	}
	code := r.CodeValue
	if code == "" {
		code = string(r.ResCode)
	}
	if code == "" {
		return true
	}
	upper := strings.ToUpper(code)
	return upper == "SUCCESS" || upper == "0"
}

// Error 满足 error 接口，便于 httpclient 包装。
func (r *CodeResponse) Error() string {
	return fmt.Sprintf("%s: %s", r.Code(), r.Message())
}

// Code 返回统一错误码。
func (r *CodeResponse) Code() string {
	if r == nil {
		return ""
	}
	if r.CodeValue != "" {
		return r.CodeValue
	}
	return string(r.ResCode)
}

// Message 返回服务端消息。
func (r *CodeResponse) Message() string {
	if r == nil {
		return ""
	}
	if r.Msg != "" {
		return r.Msg
	}
	return r.ResMessage
}

// CapacityInfo 容量信息，单位字节。
type CapacityInfo struct {
	TotalSize       int64 `json:"totalSize"`
	UsedSize        int64 `json:"usedSize"`
	FreeSize        int64 `json:"freeSize"`
	Mail189UsedSize int64 `json:"mail189UsedSize,omitempty"`
}

// UserSizeInfoResponse 帐号容量结果。
type UserSizeInfoResponse struct {
	CodeResponse
	CloudCapacityInfo  *CapacityInfo `json:"cloudCapacityInfo"`
	FamilyCapacityInfo *CapacityInfo `json:"familyCapacityInfo"`
}

// UserSignResponse 个人签到结果，奖励容量单位 MB。
type UserSignResponse struct {
	CodeResponse
	IsSign       bool    `json:"isSign"`
	NetdiskBonus float64 `json:"netdiskBonus"`
}

// FamilyInfo 家庭信息，UserRole 为 1 时当前帐号是主家庭。
type FamilyInfo struct {
	FamilyID   int64  `json:"familyId"`
	RemarkName string `json:"remarkName"`
	Type       int    `json:"type"`
	UserRole   int    `json:"userRole"`
}

// FamilyListResponse 家庭列表。
type FamilyListResponse struct {
	CodeResponse
	FamilyInfoResp []FamilyInfo `json:"familyInfoResp"`
}

// FamilyUserSignResponse 家庭签到结果，奖励容量单位 MB。
type FamilyUserSignResponse struct {
	CodeResponse
	BonusSpace   float64 `json:"bonusSpace"`
	SignFamilyID int64   `json:"signFamilyId"`
	SignStatus   int     `json:"signStatus"`
	SignTime     string  `json:"signTime"`
	UserID       string  `json:"userId"`
}

// AccessTokenResponse getAccessTokenBySsKey 的结果，ExpiresIn 单位秒。
type AccessTokenResponse struct {
	CodeResponse
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// RsaKey 上传签名使用的 RSA 公钥，Expire 为毫秒时间戳。
type RsaKey struct {
	Expire int64  `json:"expire"`
	PkID   string `json:"pkId"`
	PubKey string `json:"pubKey"`
	Ver    string `json:"ver"`
}

// RsaKeyResponse generateRsaKey 的结果。
type RsaKeyResponse struct {
	CodeResponse
	RsaKey
}

// FileItem 文件项。
type FileItem struct {
	ID         FlexString `json:"id"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	Md5        string     `json:"md5"`
	CreateDate string     `json:"createDate"`
	LastOpTime string     `json:"lastOpTime"`
	MediaType  int        `json:"mediaType"`
	Rev        FlexString `json:"rev"`
}

// FolderItem 文件夹项。
type FolderItem struct {
	ID         FlexString `json:"id"`
	ParentID   FlexString `json:"parentId"`
	Name       string     `json:"name"`
	FileCount  int        `json:"fileCount"`
	CreateDate string     `json:"createDate"`
	LastOpTime string     `json:"lastOpTime"`
	Rev        FlexString `json:"rev"`
}

// FileListAO 文件列表数据对象。
type FileListAO struct {
	Count      int          `json:"count"`
	FileList   []FileItem   `json:"fileList"`
	FolderList []FolderItem `json:"folderList"`
}

// FileListResponse 文件列表结果，LastRev 用于增量同步。
type FileListResponse struct {
	CodeResponse
	FileListAO *FileListAO `json:"fileListAO"`
	LastRev    int64       `json:"lastRev"`
}

// FolderInfo 创建/重命名文件夹的结果。
type FolderInfo struct {
	CodeResponse
	ID       FlexString `json:"id"`
	Name     string     `json:"name"`
	ParentID FlexString `json:"parentId"`
}

// UploadInitData 上传初始化数据。FileDataExists 为 1 时可秒传。
type UploadInitData struct {
	UploadType     int        `json:"uploadType"`
	UploadHost     string     `json:"uploadHost"`
	UploadFileID   FlexString `json:"uploadFileId"`
	FileDataExists int        `json:"fileDataExists"`
}

// Exists 判断服务端是否已存在相同内容。
func (d UploadInitData) Exists() bool {
	return d.FileDataExists == 1
}

// UploadInitResponse initMultiUpload/checkTransSecond 的结果。
type UploadInitResponse struct {
	CodeResponse
	Data UploadInitData `json:"data"`
}

// UploadFileInfo 上传完成后的文件信息。
type UploadFileInfo struct {
	UserFileID FlexString `json:"userFileId"`
	FileName   string     `json:"fileName"`
	FileSize   int64      `json:"fileSize"`
	FileMd5    string     `json:"fileMd5"`
	CreateDate string     `json:"createDate"`
	Rev        FlexString `json:"rev"`
	UserID     int64      `json:"userId"`
}

// UploadCommitResponse commitMultiUploadFile 的结果。
type UploadCommitResponse struct {
	CodeResponse
	File *UploadFileInfo `json:"file"`
}

// UploadURLInfo 分片的预签名上传地址，RequestHeader 以 & 连接的 k=v 形式下发。
type UploadURLInfo struct {
	RequestURL    string `json:"requestURL"`
	RequestHeader string `json:"requestHeader"`
}

// MultiUploadURLsResponse getMultiUploadUrls 的结果，键为 partNumber_N。
type MultiUploadURLsResponse struct {
	CodeResponse
	UploadURLs map[string]UploadURLInfo `json:"uploadUrls"`
}

// UploadCallbacks 上传过程回调，均可为空。
type UploadCallbacks struct {
	// OnProgress 整体进度（0-100），并发分片上报时不保证单调递增。
	OnProgress func(percent float64)
	// OnComplete 上传成功后携带提交结果调用一次。
	OnComplete func(result *UploadCommitResponse)
	// OnError 上传失败时在返回错误前调用一次。
	OnError func(err error)
}

// BatchTaskType 批量任务类型。
type BatchTaskType string

const (
	BatchTaskMove   BatchTaskType = "MOVE"
	BatchTaskCopy   BatchTaskType = "COPY"
	BatchTaskDelete BatchTaskType = "DELETE"
)

// BatchTaskInfo 批量任务中的单个文件。
type BatchTaskInfo struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName,omitempty"`
	IsFolder    int    `json:"isFolder"`
	SrcParentID string `json:"srcParentId,omitempty"`
}

// CreateBatchTaskRequest 批量任务请求。
type CreateBatchTaskRequest struct {
	Type           BatchTaskType
	TaskInfos      []BatchTaskInfo
	TargetFolderID string
	FamilyID       int64
}

type createBatchTaskResponse struct {
	CodeResponse
	TaskID string `json:"taskId"`
}

type checkBatchTaskResponse struct {
	CodeResponse
	TaskStatus          int     `json:"taskStatus"`
	SuccessedFileIDList []int64 `json:"successedFileIdList"`
}

// 批量任务的服务端状态码。
const (
	batchTaskStatusAnomaly      = -1
	batchTaskStatusNameConflict = 2
	batchTaskStatusSuccess      = 4
)
