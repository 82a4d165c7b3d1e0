package chat

import (
	"fmt"

	"github.com/simpchat/simp-go/internal/observe"
	"github.com/simpchat/simp-go/internal/protocol"
)

// State 连接所处的阶段
type State int

const (
	// StateIdle 空闲，未参与任何聊天
	StateIdle State = iota
	// StateHandshakePending 已接受 SYN 并回复 SYN|ACK，等待对端 ACK
	StateHandshakePending
	// StateActive 握手完成，聊天进行中
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshakePending:
		return "handshake-pending"
	case StateActive:
		return "active"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session 单个通信端点的会话状态。
// 状态只在 Handle 的转移里变更，由通信循环独占持有，无需加锁
type Session struct {
	ID       string // 仅用于日志关联
	Host     string
	Port     int
	Username string
	State    State
}

// Busy 是否正处于活跃的聊天交换中
func (s *Session) Busy() bool { return s.State == StateActive }

// displayName 发往对端的聊天消息带上本端地址前缀
func (s *Session) displayName() string {
	return fmt.Sprintf("(%s:%d)%s", s.Host, s.Port, s.Username)
}

// Action 状态机对一条入站消息的裁决
type Action int

const (
	// ActNoReply 不回复，继续等待
	ActNoReply Action = iota
	// ActReply 发送 Reply
	ActReply
	// ActReplyThenFin 发送 Reply 后紧跟一条 FIN 并结束会话
	ActReplyThenFin
	// ActClose 不回复，结束会话
	ActClose
)

// Decision 状态机的输出：动作加可选的回复消息与关闭原因
type Decision struct {
	Action Action
	Reply  protocol.Message
	Reason string // ActClose 时展示给操作者的原因
}

// Handle 连接状态机。对每条入站消息给出裁决并推进会话状态。
// 除 Prompter 交互外没有副作用，收发都由通信循环负责
func Handle(sess *Session, msg protocol.Message, p Prompter) (Decision, error) {
	if msg.IsChat() {
		return handleChat(sess, msg, p)
	}

	switch msg.Operation() {
	case protocol.OpSyn:
		return handleSyn(sess, p)

	case protocol.OpAck:
		// 对端发来最终 ACK，握手在本端视角完成
		sess.State = StateActive
		observe.IncHandshake()
		p.Notify("Connected! with " + msg.Sender())
		text, err := p.AskText("[" + sess.Username + "]: ")
		if err != nil {
			return Decision{}, err
		}
		return Decision{Action: ActReply, Reply: protocol.NewChat(sess.displayName(), text, false)}, nil

	case protocol.OpSynAck:
		return handleSynAck(sess, msg, p)

	case protocol.OpFin:
		sess.State = StateIdle
		return Decision{Action: ActClose, Reason: "Connection closed"}, nil

	case protocol.OpErr:
		sess.State = StateIdle
		return Decision{Action: ActClose, Reason: msg.Body}, nil
	}

	return Decision{}, fmt.Errorf("unhandled operation %v", msg.Operation())
}

func handleSyn(sess *Session, p Prompter) (Decision, error) {
	if sess.Busy() {
		reply, _ := protocol.NewControl(sess.Username, protocol.OpErr, false, "User already in another chat")
		return Decision{Action: ActReplyThenFin, Reply: reply}, nil
	}
	accept, err := p.AskYesNo("Accept connection? [Y/n] ")
	if err != nil {
		return Decision{}, err
	}
	if !accept {
		reply, _ := protocol.NewControl(sess.Username, protocol.OpFin, false, "")
		return Decision{Action: ActReply, Reply: reply}, nil
	}
	// 回复 SYN|ACK，握手尚未完成，等对端 ACK 才算忙
	sess.State = StateHandshakePending
	reply, _ := protocol.NewControl(sess.Username, protocol.OpSynAck, false, "")
	return Decision{Action: ActReply, Reply: reply}, nil
}

func handleSynAck(sess *Session, msg protocol.Message, p Prompter) (Decision, error) {
	if sess.Busy() {
		reply, _ := protocol.NewControl(sess.Username, protocol.OpErr, false, sess.Username+" is busy")
		return Decision{Action: ActReplyThenFin, Reply: reply}, nil
	}
	// 发出最终 ACK，握手在本端视角完成
	sess.State = StateActive
	observe.IncHandshake()
	p.Notify("Connecting with " + msg.Sender() + "...")
	reply, _ := protocol.NewControl(sess.Username, protocol.OpAck, false, "")
	return Decision{Action: ActReply, Reply: reply}, nil
}

func handleChat(sess *Session, msg protocol.Message, p Prompter) (Decision, error) {
	if !sess.Busy() {
		reply, _ := protocol.NewControl(sess.Username, protocol.OpErr, false, sess.Username+" is not in a chat")
		return Decision{Action: ActReplyThenFin, Reply: reply}, nil
	}
	p.Notify("[" + msg.Sender() + "]: " + msg.Body)
	text, err := p.AskText("[" + sess.Username + "]: ")
	if err != nil {
		return Decision{}, err
	}
	return Decision{Action: ActReply, Reply: protocol.NewChat(sess.displayName(), text, false)}, nil
}
