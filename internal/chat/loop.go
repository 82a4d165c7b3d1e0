package chat

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/simpchat/simp-go/internal/observe"
	"github.com/simpchat/simp-go/internal/protocol"
	"github.com/simpchat/simp-go/internal/transport"
	"github.com/simpchat/simp-go/pkg/logger"
)

// QuitWord 聊天输入等于该词时不发送聊天消息，改为发送 FIN 并结束会话。
// 由通信循环在发送前检查，状态机不感知
const QuitWord = "quit"

// Transporter 通信循环依赖的数据报传输
type Transporter interface {
	Send(b []byte, peer *net.UDPAddr) error
	Receive(maxBytes int) (transport.RecvResult, error)
	SetReceiveTimeout(d time.Duration)
	Close() error
}

// Options 通信循环的可调参数
type Options struct {
	ChatTimeout time.Duration // 发送聊天回复后的接收超时，默认 5s
	ReadBuffer  int           // 单次接收的最大字节数，默认 1024
}

// Loop 通信循环：接收、分发给状态机、发送，并执行超时重传策略。
// 单线程顺序执行，latest 与会话状态都由它独占
type Loop struct {
	conn Transporter
	sess *Session
	p    Prompter

	latest *protocol.Message // 最近一条出站消息，超时后重传
	peer   *net.UDPAddr      // 最近一次交互的对端地址

	chatTimeout time.Duration
	readBuffer  int
	log         *zap.SugaredLogger
}

func NewLoop(conn Transporter, sess *Session, p Prompter, opt Options) *Loop {
	if opt.ChatTimeout <= 0 {
		opt.ChatTimeout = 5 * time.Second
	}
	if opt.ReadBuffer <= 0 {
		opt.ReadBuffer = 1024
	}
	return &Loop{
		conn:        conn,
		sess:        sess,
		p:           p,
		chatTimeout: opt.ChatTimeout,
		readBuffer:  opt.ReadBuffer,
		log:         logger.S().With("session", sess.ID, "user", sess.Username),
	}
}

// Connect 客户端入口：确认后向对端发送 SYN，开启握手。
// 拒绝连接时返回 false，调用方直接退出
func (l *Loop) Connect(peer *net.UDPAddr) (bool, error) {
	ok, err := l.p.AskYesNo("Connect to server? [Y/n] ")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	syn, _ := protocol.NewControl(l.sess.Username, protocol.OpSyn, false, "")
	if err := l.send(syn, peer); err != nil {
		return false, err
	}
	return true, nil
}

// Run 阻塞运行直到会话结束、出错或 ctx 取消。
// 会话正常终止（FIN/ERR/quit/中断）返回 nil
func (l *Loop) Run(ctx context.Context) error {
	l.log.Infow("session loop started")

	// ctx 取消时关闭套接字，让阻塞中的 Receive 返回
	go func() {
		<-ctx.Done()
		_ = l.conn.Close()
	}()

	for {
		res, err := l.conn.Receive(l.readBuffer)
		if err != nil {
			if ctx.Err() != nil {
				// 中断退出，不做重传
				observe.IncSessionClosed("interrupt")
				return nil
			}
			return err
		}

		if res.TimedOut {
			observe.IncReceiveTimeout()
			l.resendLatest()
			continue
		}

		msg, err := protocol.DecodeMessage(res.Data)
		if err != nil {
			// 解码失败对整个会话是致命的，不做逐条恢复
			observe.IncSessionClosed("decode")
			return err
		}
		observe.IncReceived(msg.Kind().String())
		l.peer = res.Peer

		dec, err := Handle(l.sess, msg, l.p)
		if err != nil {
			return err
		}

		switch dec.Action {
		case ActNoReply:
			continue

		case ActClose:
			if dec.Reason != "" {
				l.p.Notify("<ERROR> ABORTING CONNECTION.\n" + dec.Reason)
			}
			observe.IncSessionClosed(closeReason(msg))
			return nil

		case ActReply:
			if dec.Reply.IsChat() && dec.Reply.Body == QuitWord {
				// 用户请求退出：改发 FIN 并在本端结束
				fin, _ := protocol.NewControl(l.sess.Username, protocol.OpFin, false, "")
				if err := l.send(fin, res.Peer); err != nil {
					return err
				}
				observe.IncSessionClosed("quit")
				return nil
			}
			if err := l.send(dec.Reply, res.Peer); err != nil {
				return err
			}
			reply := dec.Reply
			l.latest = &reply
			if reply.IsChat() {
				// 聊天回复发出后开始限时等待，超时触发重传
				l.conn.SetReceiveTimeout(l.chatTimeout)
			}

		case ActReplyThenFin:
			if err := l.send(dec.Reply, res.Peer); err != nil {
				return err
			}
			fin, _ := protocol.NewControl(l.sess.Username, protocol.OpFin, false, "")
			if err := l.send(fin, res.Peer); err != nil {
				return err
			}
			observe.IncSessionClosed("err")
			return nil
		}
	}
}

// resendLatest 超时重传：重发最近一条出站消息，仅重传标记字节不同
func (l *Loop) resendLatest() {
	if l.latest == nil || l.peer == nil {
		l.log.Infow("no message to resend")
		return
	}
	repeat := *l.latest
	repeat.Header.Sequence = protocol.SeqResend
	if err := l.conn.Send(repeat.Encode(), l.peer); err != nil {
		l.log.Warnw("resend failed", "err", err)
		return
	}
	observe.IncRetransmit()
	l.log.Debugw("resent latest message", "kind", repeat.Kind().String())
}

func (l *Loop) send(msg protocol.Message, peer *net.UDPAddr) error {
	if err := l.conn.Send(msg.Encode(), peer); err != nil {
		return err
	}
	observe.IncSent(msg.Kind().String())
	return nil
}

func closeReason(incoming protocol.Message) string {
	if incoming.IsControl() && incoming.Operation() == protocol.OpErr {
		return "err"
	}
	return "fin"
}
