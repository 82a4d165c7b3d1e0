package protocol

import "errors"

// 协议层错误定义
var (
	// ErrInvalidEnumValue 解码时遇到未知的标志字节
	ErrInvalidEnumValue = errors.New("invalid enum value")
	// ErrDecode 负载不是合法的 UTF-8 文本，或缓冲区放不下固定头部
	ErrDecode = errors.New("malformed message")
	// ErrConstruction 控制消息构造参数非法，属于调用方 bug 而非网络状况
	ErrConstruction = errors.New("invalid control message construction")
)
