package protocol

import "fmt"

// Kind 消息类别，占头部第 1 个字节
//
// Control: 控制消息，携带连接状态与指令
// Chat: 聊天消息，携带聊天内容
type Kind uint8

const (
	KindControl Kind = 0x1
	KindChat    Kind = 0x2
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindChat:
		return "chat"
	}
	return fmt.Sprintf("kind(0x%02x)", uint8(k))
}

// Operation 控制消息的操作码，占头部第 2 个字节
//
// ERR: 错误，消息负载为错误描述
// SYN: 发起连接，握手的第一步
// ACK: 确认，握手的最后一步
// FIN: 终止连接
// SYN|ACK: 组合值 0x6，握手第二步的专用操作码。
// 线上它是 SYN 和 ACK 的按位或，这里按独立枚举处理，不做位掩码回退
type Operation uint8

const (
	OpErr    Operation = 0x1
	OpSyn    Operation = 0x2
	OpAck    Operation = 0x4
	OpSynAck Operation = OpSyn | OpAck
	OpFin    Operation = 0x8
)

func (o Operation) String() string {
	switch o {
	case OpErr:
		return "ERR"
	case OpSyn:
		return "SYN"
	case OpAck:
		return "ACK"
	case OpSynAck:
		return "SYN|ACK"
	case OpFin:
		return "FIN"
	}
	return fmt.Sprintf("op(0x%02x)", uint8(o))
}

// Sequence 重传标记，占头部第 3 个字节
//
// Resend: 本消息是此前某条消息的重传
// Fresh: 首次发送
type Sequence uint8

const (
	SeqResend Sequence = 0x1
	SeqFresh  Sequence = 0x2
)

func (s Sequence) String() string {
	switch s {
	case SeqResend:
		return "RE"
	case SeqFresh:
		return "NORE"
	}
	return fmt.Sprintf("seq(0x%02x)", uint8(s))
}

// 标志位字段按字节精确匹配解码，未知取值一律拒绝

func kindFromByte(b byte) (Kind, error) {
	k := Kind(b)
	switch k {
	case KindControl, KindChat:
		return k, nil
	}
	return 0, fmt.Errorf("%w: message kind 0x%02x", ErrInvalidEnumValue, b)
}

func operationFromByte(b byte) (Operation, error) {
	o := Operation(b)
	switch o {
	case OpErr, OpSyn, OpAck, OpSynAck, OpFin:
		return o, nil
	}
	return 0, fmt.Errorf("%w: operation 0x%02x", ErrInvalidEnumValue, b)
}

func sequenceFromByte(b byte) (Sequence, error) {
	s := Sequence(b)
	switch s {
	case SeqResend, SeqFresh:
		return s, nil
	}
	return 0, fmt.Errorf("%w: sequence flag 0x%02x", ErrInvalidEnumValue, b)
}
