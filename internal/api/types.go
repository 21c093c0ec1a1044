package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SessionID 后端分配的会话标识，按不透明值处理
// 保存响应里的原始 JSON 记号：数字原样，字符串连同引号，回传时按同样的形式编码
// 代码里直接构造的值不带引号，纯数字按数字编码，其余按字符串
type SessionID string

// MarshalJSON 按收到时的形式编码
func (id SessionID) MarshalJSON() ([]byte, error) {
	raw := []byte(id)
	if isJSONString(raw) || isJSONNumber(raw) {
		return raw, nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON 同时接受数字和字符串，并记住是哪一种
func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = ""
			return nil
		}
		quoted, err := json.Marshal(s)
		if err != nil {
			return err
		}
		*id = SessionID(quoted)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session_id 既不是数字也不是字符串: %s", string(data))
	}
	*id = SessionID(n.String())
	return nil
}

// String 给人看和拼 URL 用的文本，不带引号
func (id SessionID) String() string {
	raw := []byte(id)
	if isJSONString(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(id)
}

func isJSONString(raw []byte) bool {
	return len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' && json.Valid(raw)
}

func isJSONNumber(raw []byte) bool {
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return false
	}
	return json.Valid(raw)
}

// GenerateRequest 生成/细化请求
// session_id 和 image 字段始终出现，未设置时为 null
type GenerateRequest struct {
	Prompt    string     `json:"prompt"`
	SessionID *SessionID `json:"session_id"`
	Image     *string    `json:"image"`
}

// IsRefinement 请求是否带着快照作为细化上下文
func (r GenerateRequest) IsRefinement() bool {
	return r.Image != nil
}

// generateResponse 线上的两种响应形状，只靠 error 字段区分
type generateResponse struct {
	SessionID *SessionID `json:"session_id"`
	GlbURL    string     `json:"glb_url"`
	Code      string     `json:"code"`
	Error     *string    `json:"error"`
}

// Result 生成结果，只有 Generated 和 Failed 两种
type Result interface {
	isResult()
}

// Generated 生成成功
type Generated struct {
	SessionID SessionID
	GlbURL    string
	Code      string
}

// Failed 传输成功但后端报告生成或执行失败
type Failed struct {
	// SessionID 后端可能为空
	SessionID *SessionID
	Message   string
}

func (Generated) isResult() {}
func (Failed) isResult()    {}

// toResult 把线上响应转换成 Result，成功响应缺少 session_id 时返回 DecodeError
func (r generateResponse) toResult() (Result, error) {
	if r.Error != nil {
		var sid *SessionID
		if r.SessionID != nil && *r.SessionID != "" {
			id := *r.SessionID
			sid = &id
		}
		return Failed{SessionID: sid, Message: *r.Error}, nil
	}
	if r.SessionID == nil || *r.SessionID == "" {
		return nil, &DecodeError{Err: fmt.Errorf("响应缺少 session_id")}
	}
	return Generated{
		SessionID: *r.SessionID,
		GlbURL:    r.GlbURL,
		Code:      r.Code,
	}, nil
}

// StatusResponse 后端健康检查响应
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Format 导出格式
type Format string

const (
	FormatSTL  Format = "stl"
	FormatGLTF Format = "gltf"
	FormatGLB  Format = "glb"
)

// ParseFormat 解析导出格式，大小写不敏感
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSTL, FormatGLTF, FormatGLB:
		return f, nil
	default:
		return "", fmt.Errorf("不支持的导出格式: %q", s)
	}
}
