package chat

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simpchat/simp-go/internal/protocol"
	"github.com/simpchat/simp-go/internal/transport"
)

var testPeer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

// fakeConn 按脚本吐出接收结果并记录所有发送，测试用
type fakeConn struct {
	script   []transport.RecvResult
	sent     [][]byte
	timeouts []time.Duration
	closed   atomic.Bool
}

func (f *fakeConn) Receive(maxBytes int) (transport.RecvResult, error) {
	if len(f.script) == 0 {
		return transport.RecvResult{}, transport.ErrConnClosed
	}
	r := f.script[0]
	f.script = f.script[1:]
	return r, nil
}

func (f *fakeConn) Send(b []byte, peer *net.UDPAddr) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeConn) SetReceiveTimeout(d time.Duration) {
	f.timeouts = append(f.timeouts, d)
}

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

func data(msg protocol.Message) transport.RecvResult {
	return transport.RecvResult{Data: msg.Encode(), Peer: testPeer}
}

func timeout() transport.RecvResult {
	return transport.RecvResult{TimedOut: true}
}

func decodeSent(t *testing.T, raw []byte) protocol.Message {
	t.Helper()
	m, err := protocol.DecodeMessage(raw)
	if err != nil {
		t.Fatalf("decode sent frame: %v", err)
	}
	return m
}

// TestLoopResendOnTimeout 超时重传的消息与原消息逐字节一致，仅重传标记字节不同
func TestLoopResendOnTimeout(t *testing.T) {
	ack, _ := protocol.NewControl("alice", protocol.OpAck, false, "")
	fin, _ := protocol.NewControl("alice", protocol.OpFin, false, "")
	conn := &fakeConn{script: []transport.RecvResult{data(ack), timeout(), data(fin)}}
	sess := newSession("Server")
	p := &scriptPrompter{t: t, texts: []string{"hi"}}

	if err := NewLoop(conn, sess, p, Options{}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(conn.sent) != 2 {
		t.Fatalf("sent %d frames, want 2", len(conn.sent))
	}
	first, resent := conn.sent[0], conn.sent[1]
	if got := decodeSent(t, first); !got.IsChat() || got.Header.Sequence != protocol.SeqFresh {
		t.Fatalf("first frame: %#v", got.Header)
	}
	if got := decodeSent(t, resent); got.Header.Sequence != protocol.SeqResend {
		t.Fatalf("resent frame sequence = %v", got.Header.Sequence)
	}
	// 除第 3 个字节（重传标记）外逐字节一致
	if first[2] == resent[2] {
		t.Fatalf("sequence byte did not change")
	}
	first[2], resent[2] = 0, 0
	if !bytes.Equal(first, resent) {
		t.Fatalf("resent frame differs beyond the sequence byte")
	}
}

func TestLoopTimeoutWithoutLatest(t *testing.T) {
	fin, _ := protocol.NewControl("alice", protocol.OpFin, false, "")
	conn := &fakeConn{script: []transport.RecvResult{timeout(), timeout(), data(fin)}}

	if err := NewLoop(conn, newSession("Server"), &scriptPrompter{t: t}, Options{}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(conn.sent) != 0 {
		t.Fatalf("nothing should be sent without a previous message, got %d", len(conn.sent))
	}
}

// TestLoopQuitSendsFin 聊天输入为 quit 时发送 FIN 并结束，不再询问操作者
func TestLoopQuitSendsFin(t *testing.T) {
	conn := &fakeConn{script: []transport.RecvResult{data(protocol.NewChat("alice", "bye?", false))}}
	sess := newSession("Server")
	sess.State = StateActive
	p := &scriptPrompter{t: t, texts: []string{QuitWord}}

	if err := NewLoop(conn, sess, p, Options{}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d frames, want only the FIN", len(conn.sent))
	}
	got := decodeSent(t, conn.sent[0])
	if !got.IsControl() || got.Operation() != protocol.OpFin {
		t.Fatalf("sent %v, want FIN", got.Operation())
	}
	if len(p.texts) != 0 {
		t.Fatalf("prompter script not consumed")
	}
}

// TestLoopErrReplyFollowedByFin ERR 回复后必须紧跟 FIN 并结束循环
func TestLoopErrReplyFollowedByFin(t *testing.T) {
	conn := &fakeConn{script: []transport.RecvResult{data(protocol.NewChat("alice", "hello", false))}}
	sess := newSession("Server") // 空闲状态收到聊天

	if err := NewLoop(conn, sess, &scriptPrompter{t: t}, Options{}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(conn.sent) != 2 {
		t.Fatalf("sent %d frames, want ERR then FIN", len(conn.sent))
	}
	if got := decodeSent(t, conn.sent[0]); got.Operation() != protocol.OpErr {
		t.Fatalf("first frame = %v, want ERR", got.Operation())
	}
	if got := decodeSent(t, conn.sent[1]); got.Operation() != protocol.OpFin {
		t.Fatalf("second frame = %v, want FIN", got.Operation())
	}
}

// TestLoopArmsChatTimeout 首条聊天回复发出后才设置接收超时
func TestLoopArmsChatTimeout(t *testing.T) {
	ack, _ := protocol.NewControl("alice", protocol.OpAck, false, "")
	fin, _ := protocol.NewControl("alice", protocol.OpFin, false, "")
	conn := &fakeConn{script: []transport.RecvResult{data(ack), data(fin)}}
	sess := newSession("Server")
	p := &scriptPrompter{t: t, texts: []string{"hi"}}

	if err := NewLoop(conn, sess, p, Options{ChatTimeout: 5 * time.Second}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(conn.timeouts) != 1 || conn.timeouts[0] != 5*time.Second {
		t.Fatalf("timeouts = %v, want one 5s arm", conn.timeouts)
	}
}

func TestLoopPeerErrSurfaced(t *testing.T) {
	errMsg, _ := protocol.NewControl("Server", protocol.OpErr, false, "Server is busy")
	conn := &fakeConn{script: []transport.RecvResult{data(errMsg)}}
	p := &scriptPrompter{t: t}

	if err := NewLoop(conn, newSession("alice"), p, Options{}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(p.notes) != 1 || !bytes.Contains([]byte(p.notes[0]), []byte("Server is busy")) {
		t.Fatalf("peer error not surfaced: %q", p.notes)
	}
}

func TestLoopAbortsOnDecodeError(t *testing.T) {
	bad := transport.RecvResult{Data: []byte{0xff, 0x00}, Peer: testPeer}
	conn := &fakeConn{script: []transport.RecvResult{bad}}

	err := NewLoop(conn, newSession("Server"), &scriptPrompter{t: t}, Options{}).Run(context.Background())
	if err == nil {
		t.Fatalf("expected decode error to abort the session")
	}
}

func TestLoopInterrupt(t *testing.T) {
	conn := &fakeConn{} // 空脚本：Receive 立即返回 ErrConnClosed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewLoop(conn, newSession("Server"), &scriptPrompter{t: t}, Options{}).Run(ctx); err != nil {
		t.Fatalf("interrupted run must return nil, got %v", err)
	}
	// 关闭由后台协程执行，留一点调度余量
	deadline := time.Now().Add(2 * time.Second)
	for !conn.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("socket must be closed on cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnectSendsSyn(t *testing.T) {
	conn := &fakeConn{}
	p := &scriptPrompter{t: t, answers: []bool{true}}
	loop := NewLoop(conn, newSession("alice"), p, Options{})

	ok, err := loop.Connect(testPeer)
	if err != nil || !ok {
		t.Fatalf("connect: ok=%v err=%v", ok, err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(conn.sent))
	}
	got := decodeSent(t, conn.sent[0])
	if got.Operation() != protocol.OpSyn || got.Sender() != "alice" {
		t.Fatalf("sent %v from %q, want SYN from alice", got.Operation(), got.Sender())
	}
}

func TestConnectDeclined(t *testing.T) {
	conn := &fakeConn{}
	p := &scriptPrompter{t: t, answers: []bool{false}}

	ok, err := NewLoop(conn, newSession("alice"), p, Options{}).Connect(testPeer)
	if err != nil || ok {
		t.Fatalf("declined connect: ok=%v err=%v", ok, err)
	}
	if len(conn.sent) != 0 {
		t.Fatalf("nothing should be sent when declined")
	}
}
