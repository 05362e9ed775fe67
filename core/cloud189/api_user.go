package cloud189

import (
	"context"
	"net/http"
	"strconv"
)

// GetUserSizeInfo 获取个人与家庭网盘的容量信息。
func (c *Client) GetUserSizeInfo(ctx context.Context) (*UserSizeInfoResponse, error) {
	var rsp UserSizeInfoResponse
	if err := c.do(ctx, ZoneWeb, http.MethodGet, c.webBaseURL, "/api/portal/getUserSizeInfo.action", nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// UserSign 个人签到，返回奖励容量（MB）。
func (c *Client) UserSign(ctx context.Context) (*UserSignResponse, error) {
	params := map[string]string{
		"rand":       strconv.FormatInt(c.now().UnixMilli(), 10),
		"clientType": signClientType,
		"version":    signVersion,
		"model":      signModel,
	}
	var rsp UserSignResponse
	if err := c.do(ctx, ZoneWeb, http.MethodGet, c.webBaseURL, "/mkt/userSign.action", params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// GetFamilyList 获取家庭列表。
func (c *Client) GetFamilyList(ctx context.Context) (*FamilyListResponse, error) {
	var rsp FamilyListResponse
	if err := c.do(ctx, ZoneAPI, http.MethodGet, c.apiBaseURL, "/open/family/manage/getFamilyList.action", nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// FamilyUserSign 家庭签到，返回奖励容量（MB）。
func (c *Client) FamilyUserSign(ctx context.Context, familyID int64) (*FamilyUserSignResponse, error) {
	params := map[string]string{"familyId": strconv.FormatInt(familyID, 10)}
	var rsp FamilyUserSignResponse
	if err := c.do(ctx, ZoneAPI, http.MethodGet, c.apiBaseURL, "/open/family/manage/exeFamilyUserSign.action", params, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}
