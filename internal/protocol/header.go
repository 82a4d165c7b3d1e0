package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// HeaderSize SIMP 头部固定 39 字节
	HeaderSize = 39
	// SenderSize 发送者名称字段固定 32 字节，NUL 填充
	SenderSize = 32
)

// Header SIMP 消息头部，字段按线上顺序排列：
// 类别(1) 操作码(1) 重传标记(1) 发送者(32) 负载长度(4, 大端)
type Header struct {
	Kind      Kind
	Operation Operation
	Sequence  Sequence
	Sender    string // 恒为 32 字节，见 NormalizeSender
	Length    uint32 // 负载的字节长度
}

// Encode 按固定宽度顺序拼接各字段，字段间无填充
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.Kind)
	buf[1] = byte(h.Operation)
	buf[2] = byte(h.Sequence)
	copy(buf[3:3+SenderSize], NormalizeSender(h.Sender))
	binary.BigEndian.PutUint32(buf[HeaderSize-4:], h.Length)
	return buf
}

// DecodeHeader 按位置解码 39 字节头部，消费精确的字段宽度
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header requires %d bytes, got %d", ErrDecode, HeaderSize, len(data))
	}
	kind, err := kindFromByte(data[0])
	if err != nil {
		return Header{}, err
	}
	op, err := operationFromByte(data[1])
	if err != nil {
		return Header{}, err
	}
	seq, err := sequenceFromByte(data[2])
	if err != nil {
		return Header{}, err
	}
	sender := string(data[3 : 3+SenderSize])
	if !utf8.ValidString(strings.TrimRight(sender, "\x00")) {
		return Header{}, fmt.Errorf("%w: sender is not valid UTF-8", ErrDecode)
	}
	return Header{
		Kind:      kind,
		Operation: op,
		Sequence:  seq,
		Sender:    sender,
		Length:    binary.BigEndian.Uint32(data[HeaderSize-4 : HeaderSize]),
	}, nil
}

// NormalizeSender 将发送者名称规整为恰好 32 字节：
// 不足 NUL 填充，超出按字节截断。幂等操作
func NormalizeSender(s string) string {
	b := []byte(s)
	if len(b) >= SenderSize {
		return string(b[:SenderSize])
	}
	padded := make([]byte, SenderSize)
	copy(padded, b)
	return string(padded)
}

// DisplayName 去掉 NUL 填充后的发送者名称，用于展示
func (h Header) DisplayName() string {
	return strings.TrimRight(h.Sender, "\x00")
}
