package transport

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/simpchat/simp-go/pkg/logger"
)

// MaxDatagramSize 单个数据报的硬上限
const MaxDatagramSize = 64 * 1024

// Conn 基于 UDP 的无连接数据报传输。
// 服务端用 Listen 绑定到已知地址，客户端用 Open 取临时端口。
// 两端都通过 (host, port) 寻址对端，没有连接语义
type Conn struct {
	pc      *net.UDPConn
	timeout time.Duration // 0 表示无限阻塞等待
}

// Listen 绑定到指定地址（服务端）
func Listen(host string, port int) (*Conn, error) {
	addr, err := Resolve(host, port)
	if err != nil {
		return nil, err
	}
	pc, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	logger.S().Infow("udp_listen", "addr", pc.LocalAddr().String())
	return &Conn{pc: pc}, nil
}

// Open 绑定到临时端口（客户端）
func Open() (*Conn, error) {
	pc, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return &Conn{pc: pc}, nil
}

// Resolve 将 (host, port) 解析为 UDP 地址
func Resolve(host string, port int) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// RecvResult 一次接收的结果。
// 超时是显式结果而不是错误：TimedOut 为真时 Data 与 Peer 为空
type RecvResult struct {
	TimedOut bool
	Data     []byte
	Peer     *net.UDPAddr
}

// Send 向对端发送一个数据报
func (c *Conn) Send(b []byte, peer *net.UDPAddr) error {
	if len(b) > MaxDatagramSize {
		return ErrDatagramTooBig
	}
	_, err := c.pc.WriteToUDP(b, peer)
	if err != nil && errors.Is(err, net.ErrClosed) {
		return ErrConnClosed
	}
	return err
}

// Receive 阻塞等待下一个数据报，受当前超时约束
func (c *Conn) Receive(maxBytes int) (RecvResult, error) {
	if c.timeout > 0 {
		_ = c.pc.SetReadDeadline(time.Now().Add(c.timeout))
	} else {
		_ = c.pc.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, maxBytes)
	n, peer, err := c.pc.ReadFromUDP(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return RecvResult{TimedOut: true}, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return RecvResult{}, ErrConnClosed
		}
		return RecvResult{}, err
	}
	data := make([]byte, n)
	copy(data, buf[:n])
	return RecvResult{Data: data, Peer: peer}, nil
}

// SetReceiveTimeout 设置后续 Receive 的等待上限，0 取消限制
func (c *Conn) SetReceiveTimeout(d time.Duration) {
	c.timeout = d
}

// LocalAddr 本端绑定的地址
func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.pc.LocalAddr().(*net.UDPAddr)
}

// Close 关闭底层套接字，任何阻塞中的 Receive 都会返回
func (c *Conn) Close() error {
	return c.pc.Close()
}
