package utils

import (
	"errors"

	"github.com/atotto/clipboard"
)

var ErrClipboardUnavailable = errors.New("clipboard unavailable")

type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard 写入宿主机剪贴板（xclip/xsel/pbcopy 等）
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

// ClientClipboard 由调用方（浏览器）完成真正的写入，copy 接口把文本返回给前端
type ClientClipboard struct{}

func (ClientClipboard) WriteAll(string) error {
	return nil
}

// DisabledClipboard 没有可用剪贴板
type DisabledClipboard struct{}

func (DisabledClipboard) WriteAll(string) error {
	return ErrClipboardUnavailable
}

func NewClipboard(backend string) Clipboard {
	switch backend {
	case "system":
		return SystemClipboard{}
	case "none":
		return DisabledClipboard{}
	default:
		return ClientClipboard{}
	}
}
