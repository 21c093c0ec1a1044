// Package state 保存应用外壳的全部状态，所有变更都经过这里定义的转换函数。
//
// 状态只在 UI 线程上读写，因此不加锁；同一时刻最多只有一个生成请求在途，
// 由 Submit 在在途期间拒绝新的提交来保证。
package state

import (
	"strings"

	"github.com/Zacy-Sokach/cadgen/internal/api"
)

// Role 消息角色
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

const (
	// GeneratedLabel 生成成功时模型消息的固定文本
	GeneratedLabel = "Model Generated"
	// ErrorPrefix 错误消息前缀
	ErrorPrefix = "Error: "
)

// Message 对话中的一条消息，创建后不再修改
type Message struct {
	Role    Role
	Content string
	Code    string
}

// ToastType 通知类型
type ToastType string

const (
	ToastError ToastType = "error"
	ToastInfo  ToastType = "info"
)

// Toast 临时通知，ID 单调递增，用来识别过期定时器是否已经被新通知取代
type Toast struct {
	ID      uint64
	Message string
	Type    ToastType
}

// Surface 可以截取当前画面的渲染面
// 返回 false 表示此刻拿不到图像
type Surface interface {
	CaptureSnapshot() (string, bool)
}

// Outcome Complete 的处理结果，外壳据此安排副作用
type Outcome struct {
	// Toast 本次新弹出的通知
	Toast *Toast
	// AssetChanged 模型地址被替换
	AssetChanged bool
}

type State struct {
	session  *api.SessionID
	messages []Message
	assetURL string
	inFlight bool
	toast    *Toast
	toastSeq uint64
}

func New() *State {
	return &State{}
}

// Submit 提交一次提示词
// 文本去空白后为空或已有请求在途时不做任何改变，返回 false
func (s *State) Submit(text string, surface Surface) (api.GenerateRequest, bool) {
	if strings.TrimSpace(text) == "" || s.inFlight {
		return api.GenerateRequest{}, false
	}

	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
	s.inFlight = true

	req := api.GenerateRequest{Prompt: text}
	if s.session != nil {
		id := *s.session
		req.SessionID = &id
	}

	// 会话、模型、已挂载的查看器三者齐备时才是细化请求
	if s.session != nil && s.assetURL != "" && surface != nil {
		if image, ok := surface.CaptureSnapshot(); ok {
			req.Image = &image
		}
	}
	return req, true
}

// Complete 处理一次请求的结果，err 非空表示传输失败
// 任何路径返回前都会清除在途标记
func (s *State) Complete(res api.Result, err error) (out Outcome) {
	defer func() {
		s.inFlight = false
	}()

	if err != nil {
		out.Toast = s.fail(api.ErrorMessage(err))
		return out
	}

	switch r := res.(type) {
	case api.Generated:
		s.messages = append(s.messages, Message{Role: RoleModel, Content: GeneratedLabel, Code: r.Code})
		out.AssetChanged = s.assetURL != r.GlbURL
		s.assetURL = r.GlbURL
		id := r.SessionID
		s.session = &id
	case api.Failed:
		if r.SessionID != nil {
			id := *r.SessionID
			s.session = &id
		}
		out.Toast = s.fail(r.Message)
	default:
		out.Toast = s.fail("unexpected response")
	}
	return out
}

func (s *State) fail(message string) *Toast {
	s.messages = append(s.messages, Message{Role: RoleModel, Content: ErrorPrefix + message})
	t := s.ShowToast(message, ToastError)
	return &t
}

// NewProject 清空对话、会话和模型
func (s *State) NewProject() {
	s.messages = nil
	s.session = nil
	s.assetURL = ""
}

// ShowToast 显示通知，替换当前通知
func (s *State) ShowToast(message string, typ ToastType) Toast {
	s.toastSeq++
	t := Toast{ID: s.toastSeq, Message: message, Type: typ}
	s.toast = &t
	return t
}

// DismissToast 关闭指定通知；已被新通知取代时不生效
func (s *State) DismissToast(id uint64) bool {
	if s.toast == nil || s.toast.ID != id {
		return false
	}
	s.toast = nil
	return true
}

// Toast 当前通知
func (s *State) Toast() (Toast, bool) {
	if s.toast == nil {
		return Toast{}, false
	}
	return *s.toast, true
}

// Messages 返回消息副本
func (s *State) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len 消息条数
func (s *State) Len() int {
	return len(s.messages)
}

// Session 当前会话
func (s *State) Session() (api.SessionID, bool) {
	if s.session == nil {
		return "", false
	}
	return *s.session, true
}

// AssetURL 当前模型地址，没有时为空
func (s *State) AssetURL() string {
	return s.assetURL
}

func (s *State) InFlight() bool {
	return s.inFlight
}

// CanSend 输入框是否可以发送
func (s *State) CanSend(input string) bool {
	return !s.inFlight && strings.TrimSpace(input) != ""
}

// LastCode 最近一次生成的代码
func (s *State) LastCode() (string, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleModel && s.messages[i].Code != "" {
			return s.messages[i].Code, true
		}
	}
	return "", false
}
