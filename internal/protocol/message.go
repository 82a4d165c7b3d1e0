package protocol

import (
	"fmt"
	"unicode/utf8"
)

// Message SIMP 消息：固定头部加 UTF-8 文本负载
type Message struct {
	Header Header
	Body   string
}

// IsControl 是否为控制消息
func (m Message) IsControl() bool { return m.Header.Kind == KindControl }

// IsChat 是否为聊天消息
func (m Message) IsChat() bool { return m.Header.Kind == KindChat }

// Kind 消息类别
func (m Message) Kind() Kind { return m.Header.Kind }

// Operation 操作码。聊天消息的操作码字节只是占位，没有语义
func (m Message) Operation() Operation { return m.Header.Operation }

// Sender 去掉填充后的发送者名称
func (m Message) Sender() string { return m.Header.DisplayName() }

// Encode 头部后紧跟负载字节
func (m Message) Encode() []byte {
	return append(m.Header.Encode(), m.Body...)
}

// DecodeMessage 解码一条完整消息。
// 负载以头部之后的实际剩余字节为准，不与头部 Length 字段交叉校验，
// 与参考实现保持线上兼容
func DecodeMessage(data []byte) (Message, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Message{}, err
	}
	body := string(data[HeaderSize:])
	if !utf8.ValidString(body) {
		return Message{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrDecode)
	}
	return Message{Header: h, Body: body}, nil
}

// NewChat 构造聊天消息。
// 操作码字节写入 ERR 的位模式作为占位，聊天消息不携带操作语义
func NewChat(sender, content string, resend bool) Message {
	return Message{
		Header: Header{
			Kind:      KindChat,
			Operation: OpErr,
			Sequence:  sequenceFor(resend),
			Sender:    NormalizeSender(sender),
			Length:    uint32(len(content)),
		},
		Body: content,
	}
}

// NewControl 构造控制消息。
// 文本负载只对 ERR 操作有意义，其余操作携带文本视为调用方错误
func NewControl(sender string, op Operation, resend bool, text string) (Message, error) {
	if op != OpErr && text != "" {
		return Message{}, fmt.Errorf("%w: message text is only valid for ERR operations", ErrConstruction)
	}
	return Message{
		Header: Header{
			Kind:      KindControl,
			Operation: op,
			Sequence:  sequenceFor(resend),
			Sender:    NormalizeSender(sender),
			Length:    uint32(len(text)),
		},
		Body: text,
	}, nil
}

func sequenceFor(resend bool) Sequence {
	if resend {
		return SeqResend
	}
	return SeqFresh
}
