package cloud189

// 默认 API 端点与客户端标识。
const (
	DefaultWebBaseURL    = "https://cloud.189.cn"
	DefaultAPIBaseURL    = "https://api.cloud.189.cn"
	DefaultUploadBaseURL = "https://upload.cloud.189.cn"

	// WebAppKey Web 开放接口使用的固定应用标识。
	WebAppKey = "600100422"

	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/87.0.4280.88 Safari/537.36"

	// 个人签到接口使用的移动端标识。
	signClientType = "TELEANDROID"
	signVersion    = "9.0.6"
	signModel      = "KB2000"
)

// DefaultSliceSize 默认分片大小（10MiB）。
const DefaultSliceSize = 10 * 1024 * 1024

// maxPartCount 单一分片大小可承载的分片数上限。
const maxPartCount = 999
