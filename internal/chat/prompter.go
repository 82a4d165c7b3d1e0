package chat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter 交互协作方：状态机需要人工决策或有内容要展示时调用。
// 实现必须是同步的，一问一答
type Prompter interface {
	// AskYesNo 询问是非题。空输入默认为是，非法输入重新询问
	AskYesNo(prompt string) (bool, error)
	// AskText 读取一行自由文本
	AskText(prompt string) (string, error)
	// Notify 仅展示，无返回
	Notify(text string)
}

// StdioPrompter 基于行读取的 Prompter 实现
type StdioPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdioPrompter 绑定到进程标准输入输出
func NewStdioPrompter() *StdioPrompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// NewPrompter 指定输入输出流，测试用
func NewPrompter(r io.Reader, w io.Writer) *StdioPrompter {
	return &StdioPrompter{in: bufio.NewReader(r), out: w}
}

func (p *StdioPrompter) AskYesNo(prompt string) (bool, error) {
	for {
		if _, err := fmt.Fprint(p.out, prompt); err != nil {
			return false, err
		}
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "":
			return true, nil
		case "n":
			return false, nil
		}
		if _, err := fmt.Fprintln(p.out, "Invalid input"); err != nil {
			return false, err
		}
	}
}

func (p *StdioPrompter) AskText(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *StdioPrompter) Notify(text string) {
	_, _ = fmt.Fprintln(p.out, text)
}
