package cloud189

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wes-lin/cloud189-sdk/core/auth"
	"github.com/wes-lin/cloud189-sdk/core/crypto"
	"github.com/wes-lin/cloud189-sdk/core/httpclient"
	"github.com/wes-lin/cloud189-sdk/core/store"
)

const mib = int64(1024 * 1024)

func TestPartSize(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want int64
	}{
		{"小文件默认 10MiB", 100 * mib, 10 * mib},
		{"边界内仍为 10MiB", 10 * mib * 999, 10 * mib},
		{"超过 999 片切换 20MiB", 10*mib*999 + 1, 20 * mib},
		{"边界内仍为 20MiB", 10 * mib * 2 * 999, 20 * mib},
		{"超大文件放大且不低于 50MiB", 10*mib*2*999 + 1, 50 * mib},
		{"4TiB 级别", 4 * 1024 * 1024 * mib, 210 * 10 * mib},
	}
	for _, c := range cases {
		if got := PartSize(c.size); got != c.want {
			t.Fatalf("%s: PartSize(%d) = %d, 期望 %d", c.name, c.size, got, c.want)
		}
	}
	// 放大档位的分片数不超过 2000 且分片不小于 50MiB
	huge := int64(30) * 1024 * 1024 * mib
	slice := PartSize(huge)
	if slice < 50*mib {
		t.Fatalf("放大档位分片不应小于 50MiB: %d", slice)
	}
	count := (huge + slice - 1) / slice
	if count > 2000 {
		t.Fatalf("分片数超出上限: %d", count)
	}
}

func TestSignerAccessToken(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	signer := NewSigner(WithSignerNow(func() time.Time { return now }))

	req, _ := http.NewRequest(http.MethodGet, "http://mock/open/file/listFiles.action", nil)
	params := map[string]string{"folderId": "-11"}
	if err := signer.AccessToken(params, "at-1")(req); err != nil {
		t.Fatalf("签名失败: %v", err)
	}

	want := crypto.SortedSignature(map[string]string{
		"folderId":    "-11",
		"Timestamp":   "1700000000000",
		"AccessToken": "at-1",
	})
	if got := req.Header.Get("Signature"); got != want {
		t.Fatalf("签名不匹配: %s != %s", got, want)
	}
	if req.Header.Get("Sign-Type") != "1" || req.Header.Get("Accesstoken") != "at-1" {
		t.Fatalf("签名头缺失: %+v", req.Header)
	}
	if req.Header.Get("Timestamp") != "1700000000000" {
		t.Fatalf("Timestamp 头错误: %s", req.Header.Get("Timestamp"))
	}
}

func TestSignerUpload(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	const key = "0123456789abcdefXYZ"
	signer := NewSigner(
		WithSignerNow(func() time.Time { return now }),
		WithSignerRequestID(func() string { return "req-id-1" }),
		WithSignerUploadKey(func() string { return key }),
	)

	// 测试用 RSA 公钥（仅用于加密，无需解密）
	pub := testRSAPubKey(t)
	rsaKey := &RsaKey{PubKey: pub, PkID: "pk-1", Expire: now.UnixMilli() + 100000}

	req, _ := http.NewRequest(http.MethodGet, "http://upload.mock/person/initMultiUpload?fileName=a.txt&fileSize=10", nil)
	if err := signer.Upload("sk-1", rsaKey)(req); err != nil {
		t.Fatalf("上传签名失败: %v", err)
	}

	params := req.URL.Query().Get("params")
	if params == "" {
		t.Fatal("查询参数未替换为 params")
	}
	if req.URL.Query().Get("fileName") != "" {
		t.Fatal("原查询参数未剥离")
	}
	wantSig := crypto.Sign(fmt.Sprintf(
		"SessionKey=sk-1&Operate=GET&RequestURI=/person/initMultiUpload&Date=1700000000000&params=%s", params), key)
	if got := req.Header.Get("Signature"); got != wantSig {
		t.Fatalf("HMAC 签名不匹配: %s != %s", got, wantSig)
	}
	for _, h := range []string{"X-Request-Date", "X-Request-ID", "SessionKey", "EncryptionText", "PkId"} {
		if req.Header.Get(h) == "" {
			t.Fatalf("缺少签名头 %s", h)
		}
	}
	// params 可用 AES key 解密回原查询串
	decrypted := decryptUploadParams(t, params, key[:16])
	if !strings.Contains(decrypted, "fileName=a.txt") || !strings.Contains(decrypted, "fileSize=10") {
		t.Fatalf("params 解密结果错误: %s", decrypted)
	}
}

func TestNewClientRequiresCredential(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("缺少凭证应立即失败，实际: %v", err)
	}
	if _, err := NewClient(Config{SsonCookie: "sson"}); err != nil {
		t.Fatalf("仅配置 SSON 应可创建: %v", err)
	}
	if _, err := NewClient(Config{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("用户名密码应可创建: %v", err)
	}
}

// testEnv 搭建覆盖三个域的测试服务端。
type testEnv struct {
	server *httptest.Server
	client *Client

	mu            sync.Mutex
	sessionCalls  int32
	accessCalls   int32
	putCalls      int32
	maxConcurrent int32
	inflight      int32
	handlers      map[string]http.HandlerFunc
}

func newTestEnv(t *testing.T, tok store.Token) *testEnv {
	t.Helper()
	env := &testEnv{handlers: map[string]http.HandlerFunc{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/getSessionForPC.action", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.sessionCalls, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"res_code": 0, "res_message": "成功",
			"accessToken": "at-login", "refreshToken": "rt-login", "sessionKey": "sk-1",
		})
	})
	mux.HandleFunc("/api/oauth2/refreshToken.do", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("refreshToken") != "rt-stored" {
			json.NewEncoder(w).Encode(map[string]any{"result": -117, "msg": "失效"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"expiresIn": 3600, "accessToken": "at-refreshed", "refreshToken": "rt-new",
		})
	})
	mux.HandleFunc("/api/open/oauth2/getAccessTokenBySsKey.action", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.accessCalls, 1)
		if r.URL.Query().Get("sessionKey") == "" {
			http.Error(w, `{"errorCode":"InvalidSessionKey"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"accessToken": "at-api", "expiresIn": 3600})
	})
	mux.HandleFunc("/api/security/generateRsaKey.action", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"res_code": 0, "res_message": "成功",
			"expire": time.Now().UnixMilli() + 600000,
			"pkId":   "pk-1", "ver": "2", "pubKey": testPubKeyCache,
		})
	})
	mux.HandleFunc("/part/put/", func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&env.inflight, 1)
		defer atomic.AddInt32(&env.inflight, -1)
		for {
			max := atomic.LoadInt32(&env.maxConcurrent)
			if cur <= max || atomic.CompareAndSwapInt32(&env.maxConcurrent, max, cur) {
				break
			}
		}
		atomic.AddInt32(&env.putCalls, 1)
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		h, ok := env.handlers[r.URL.Path]
		env.mu.Unlock()
		if ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	})
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	tokenStore := store.NewMemoryStore(tok)
	authClient := auth.NewAuthClient(httpclient.NewClient(), auth.WithEndpoints(auth.Endpoints{
		WebURL:  env.server.URL,
		AuthURL: env.server.URL,
		APIURL:  env.server.URL,
	}))
	client, err := NewClient(Config{Username: "u", Password: "p", TokenStore: tokenStore},
		WithAuthClient(authClient),
		WithBaseURLs(env.server.URL, env.server.URL, env.server.URL),
		WithSigner(NewSigner(WithSignerUploadKey(func() string { return testUploadKey }))),
	)
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	env.client = client
	return env
}

func (env *testEnv) handle(path string, h http.HandlerFunc) {
	env.mu.Lock()
	env.handlers[path] = h
	env.mu.Unlock()
}

func validToken() store.Token {
	return store.Token{
		AccessToken: "at-stored", RefreshToken: "rt-stored",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestSessionKeySingleFlight(t *testing.T) {
	env := newTestEnv(t, validToken())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.client.GetSessionKey(context.Background()); err != nil {
				t.Errorf("获取 sessionKey 失败: %v", err)
			}
		}()
	}
	wg.Wait()
	if calls := atomic.LoadInt32(&env.sessionCalls); calls != 1 {
		t.Fatalf("并发获取应合并为一次登录，实际 %d 次", calls)
	}
}

func TestRefreshTokenChainSignsAccessToken(t *testing.T) {
	// 存储中只有 refreshToken，链路应经刷新换取会话并为 API 域请求签名
	env := newTestEnv(t, store.Token{RefreshToken: "rt-stored"})

	var gotHeader atomic.Value
	env.handle("/open/family/manage/getFamilyList.action", func(w http.ResponseWriter, r *http.Request) {
		gotHeader.Store(r.Header.Get("Accesstoken"))
		if r.Header.Get("Signature") == "" || r.Header.Get("Sign-Type") != "1" {
			http.Error(w, "缺少签名", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"res_code": 0, "res_message": "成功",
			"familyInfoResp": []map[string]any{{"familyId": 1, "remarkName": "家庭", "userRole": 1}},
		})
	})

	rsp, err := env.client.GetFamilyList(context.Background())
	if err != nil {
		t.Fatalf("获取家庭列表失败: %v", err)
	}
	if len(rsp.FamilyInfoResp) != 1 {
		t.Fatalf("家庭列表解析错误: %+v", rsp)
	}
	if token, _ := gotHeader.Load().(string); token != "at-api" {
		t.Fatalf("Accesstoken 头不匹配: %q", token)
	}
	// 刷新后的 token 对已写回存储
	tok, _ := env.client.store.Get()
	if tok.AccessToken != "at-refreshed" || tok.RefreshToken != "rt-new" {
		t.Fatalf("刷新结果未持久化: %+v", tok)
	}
}

func TestAuthRetryOnceThenSurface(t *testing.T) {
	env := newTestEnv(t, validToken())

	var calls int32
	env.handle("/open/file/listFiles.action", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"errorCode":"InvalidAccessToken","errorMsg":"expired"}`, http.StatusBadRequest)
	})

	_, err := env.client.ListFiles(context.Background(), ListFilesRequest{FolderID: "-11"})
	if err == nil {
		t.Fatal("连续失效应最终返回错误")
	}
	var ec *httpclient.ErrCode
	if !errors.As(err, &ec) || ec.Code != "InvalidAccessToken" {
		t.Fatalf("应透出服务端错误码: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("凭证失效应恰好重放一次，实际请求 %d 次", got)
	}
}

func TestAuthRetryRecovers(t *testing.T) {
	env := newTestEnv(t, validToken())

	var calls int32
	env.handle("/open/file/listFiles.action", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, `{"errorCode":"InvalidAccessToken"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"res_code": 0, "res_message": "成功",
			"fileListAO": map[string]any{"count": 0, "fileList": []any{}, "folderList": []any{}},
			"lastRev":    1,
		})
	})

	rsp, err := env.client.ListFiles(context.Background(), ListFilesRequest{FolderID: "-11"})
	if err != nil {
		t.Fatalf("重放后应成功: %v", err)
	}
	if rsp.FileListAO == nil {
		t.Fatalf("响应解析错误: %+v", rsp)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("应请求 2 次，实际 %d", got)
	}
}

func TestUploadFastPath(t *testing.T) {
	env := newTestEnv(t, validToken())
	path := writeTempFile(t, 1024)

	env.handle("/person/initMultiUpload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "SUCCESS",
			"data": map[string]any{"uploadFileId": "uf-1", "fileDataExists": 1},
		})
	})
	var commitParams atomic.Value
	env.handle("/person/commitMultiUploadFile", func(w http.ResponseWriter, r *http.Request) {
		commitParams.Store(r.URL.Query().Get("params"))
		json.NewEncoder(w).Encode(map[string]any{
			"code": "SUCCESS",
			"file": map[string]any{"userFileId": "f-1", "fileName": "data.bin", "fileSize": 1024},
		})
	})

	var (
		progresses []float64
		completes  int
	)
	result, err := env.client.Upload(context.Background(), UploadRequest{
		ParentFolderID: "-11", FilePath: path,
	}, UploadCallbacks{
		OnProgress: func(p float64) { progresses = append(progresses, p) },
		OnComplete: func(*UploadCommitResponse) { completes++ },
		OnError:    func(err error) { t.Errorf("秒传不应失败: %v", err) },
	})
	if err != nil {
		t.Fatalf("秒传失败: %v", err)
	}
	if result.File == nil || result.File.UserFileID != "f-1" {
		t.Fatalf("提交结果错误: %+v", result)
	}
	if atomic.LoadInt32(&env.putCalls) != 0 {
		t.Fatal("秒传不应产生分片 PUT")
	}
	if completes != 1 {
		t.Fatalf("OnComplete 应恰好一次，实际 %d", completes)
	}
	if len(progresses) == 0 || progresses[len(progresses)-1] != 100 {
		t.Fatalf("最终进度应为 100: %v", progresses)
	}
	if got := countFull(progresses); got != 1 {
		t.Fatalf("进度 100 应恰好上报一次，实际 %d 次: %v", got, progresses)
	}
	v, _ := commitParams.Load().(string)
	if v == "" {
		t.Fatal("提交请求未携带加密 params")
	}
	if commitQuery := decryptUploadParams(t, v, testUploadKey); strings.Contains(commitQuery, "lazyCheck") {
		t.Fatalf("秒传提交不应携带 lazyCheck: %s", commitQuery)
	}
}

func TestMultiUpload(t *testing.T) {
	env := newTestEnv(t, validToken())
	// 3 KiB 文件按 1 KiB 分片，直接驱动内部多分片路径
	path := writeTempFile(t, 3*1024)
	fileMd5, chunkMd5s, err := crypto.DigestFileChunks(path, 1024)
	if err != nil {
		t.Fatalf("计算分片摘要失败: %v", err)
	}
	if len(chunkMd5s) != 3 {
		t.Fatalf("分片数应为 3，实际 %d", len(chunkMd5s))
	}

	env.handle("/person/initMultiUpload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "SUCCESS",
			"data": map[string]any{"uploadFileId": "uf-2", "fileDataExists": 0},
		})
	})
	env.handle("/person/checkTransSecond", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "SUCCESS",
			"data": map[string]any{"uploadFileId": "uf-2", "fileDataExists": 0},
		})
	})
	env.handle("/person/getMultiUploadUrls", func(w http.ResponseWriter, r *http.Request) {
		// 解密 params 取出请求的分片号，按 partNumber_N 回发专属地址
		joined := decryptUploadParams(t, r.URL.Query().Get("params"), testUploadKey)
		values, err := url.ParseQuery(joined)
		if err != nil {
			http.Error(w, "params 解析失败", http.StatusBadRequest)
			return
		}
		partNumber, _, _ := strings.Cut(values.Get("partInfo"), "-")
		json.NewEncoder(w).Encode(map[string]any{
			"code": "SUCCESS",
			"uploadUrls": map[string]any{
				"partNumber_" + partNumber: map[string]string{
					"requestURL":    env.server.URL + "/part/put/" + partNumber,
					"requestHeader": "Content-Type=application/octet-stream&x-amz-date=20240501T000000Z",
				},
			},
		})
	})
	var commits []string
	var commitMu sync.Mutex
	env.handle("/person/commitMultiUploadFile", func(w http.ResponseWriter, r *http.Request) {
		commitMu.Lock()
		commits = append(commits, r.URL.Query().Get("params"))
		commitMu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"code": "SUCCESS",
			"file": map[string]any{"userFileId": "f-2", "fileName": "data.bin"},
		})
	})

	var (
		mu         sync.Mutex
		progresses []float64
		completes  int
	)
	plan := uploadPlan{
		req:       UploadRequest{ParentFolderID: "-11", FilePath: path},
		fileName:  "data.bin",
		fileSize:  3 * 1024,
		sliceSize: 1024,
		fileMd5:   fileMd5,
		chunkMd5s: chunkMd5s,
	}
	result, err := env.client.multiUpload(context.Background(), plan, UploadCallbacks{
		OnProgress: func(p float64) {
			mu.Lock()
			progresses = append(progresses, p)
			mu.Unlock()
		},
		OnComplete: func(*UploadCommitResponse) { completes++ },
	})
	if err != nil {
		t.Fatalf("分片上传失败: %v", err)
	}
	if result.File == nil || result.File.UserFileID != "f-2" {
		t.Fatalf("提交结果错误: %+v", result)
	}
	if got := atomic.LoadInt32(&env.putCalls); got != 3 {
		t.Fatalf("应上传 3 个分片，实际 %d", got)
	}
	if max := atomic.LoadInt32(&env.maxConcurrent); max > uploadConcurrency {
		t.Fatalf("并发分片数超过上限: %d", max)
	}
	if completes != 1 {
		t.Fatalf("OnComplete 应恰好一次，实际 %d", completes)
	}
	if len(commits) != 1 {
		t.Fatalf("应恰好提交一次，实际 %d", len(commits))
	}
	commitQuery := decryptUploadParams(t, commits[0], testUploadKey)
	if !strings.Contains(commitQuery, "lazyCheck=1") {
		t.Fatalf("延迟校验提交应携带 lazyCheck=1: %s", commitQuery)
	}
	for _, p := range progresses {
		if p < 0 || p > 100 {
			t.Fatalf("进度超出范围: %v", p)
		}
	}
	if progresses[len(progresses)-1] != 100 {
		t.Fatalf("最终进度应为 100: %v", progresses[len(progresses)-1])
	}
	if got := countFull(progresses); got != 1 {
		t.Fatalf("进度 100 应恰好上报一次，实际 %d 次", got)
	}
}

func TestCheckTaskStatus(t *testing.T) {
	env := newTestEnv(t, validToken())

	var polls int32
	env.handle("/open/batch/checkBatchTask.action", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		status := 1
		var ids []int64
		if n >= 3 {
			status = batchTaskStatusSuccess
			ids = []int64{101, 102}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"taskStatus": status, "successedFileIdList": ids,
		})
	})

	ids, err := env.client.checkTaskStatus(context.Background(), BatchTaskDelete, "task-1", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if len(ids) != 2 || ids[0] != 101 {
		t.Fatalf("成功文件列表错误: %v", ids)
	}
	if atomic.LoadInt32(&polls) != 3 {
		t.Fatalf("应在第 3 次轮询返回，实际 %d 次", polls)
	}
}

func TestCheckTaskStatusTimeout(t *testing.T) {
	env := newTestEnv(t, validToken())

	env.handle("/open/batch/checkBatchTask.action", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"taskStatus": 1})
	})
	ids, err := env.client.checkTaskStatus(context.Background(), BatchTaskMove, "task-2", 5, time.Millisecond)
	if err != nil {
		t.Fatalf("超时应返回空结果而非错误: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("超时结果应为空: %v", ids)
	}
}

func TestCheckTaskStatusNameConflict(t *testing.T) {
	env := newTestEnv(t, validToken())

	env.handle("/open/batch/checkBatchTask.action", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"taskStatus": batchTaskStatusNameConflict})
	})
	ids, err := env.client.checkTaskStatus(context.Background(), BatchTaskCopy, "task-3", 5, time.Millisecond)
	if err != nil {
		t.Fatalf("重名应按终态处理: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("重名结果应为空: %v", ids)
	}
}

func TestCreateBatchTask(t *testing.T) {
	env := newTestEnv(t, validToken())

	env.handle("/open/batch/createBatchTask.action", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("type") != "DELETE" {
			http.Error(w, "type 错误", http.StatusBadRequest)
			return
		}
		var infos []BatchTaskInfo
		if err := json.Unmarshal([]byte(r.PostForm.Get("taskInfos")), &infos); err != nil || len(infos) != 1 {
			http.Error(w, "taskInfos 错误", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"taskId": "task-9"})
	})
	env.handle("/open/batch/checkBatchTask.action", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"taskStatus": batchTaskStatusSuccess, "successedFileIdList": []int64{7},
		})
	})

	ids, err := env.client.CreateBatchTask(context.Background(), CreateBatchTaskRequest{
		Type:      BatchTaskDelete,
		TaskInfos: []BatchTaskInfo{{FileID: "7", IsFolder: 0}},
	})
	if err != nil {
		t.Fatalf("批量任务失败: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("任务结果错误: %v", ids)
	}
}

func countFull(progresses []float64) int {
	n := 0
	for _, p := range progresses {
		if p == 100 {
			n++
		}
	}
	return n
}

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}
