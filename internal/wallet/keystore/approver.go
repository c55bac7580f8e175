package keystore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"organchain/pkg/domain"
)

// Approver stands in for the wallet's consent prompts.
type Approver interface {
	ApproveConnect(ctx context.Context, accounts []domain.Address) (bool, error)
	ApproveSign(addr domain.Address, digest []byte) bool
}

// AutoApprove consents to everything. Use it for unattended operation.
type AutoApprove struct{}

func (AutoApprove) ApproveConnect(context.Context, []domain.Address) (bool, error) {
	return true, nil
}

func (AutoApprove) ApproveSign(domain.Address, []byte) bool {
	return true
}

// PromptApprover asks on a terminal. Answers other than y/yes decline.
type PromptApprover struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPromptApprover(in io.Reader, out io.Writer) *PromptApprover {
	return &PromptApprover{in: bufio.NewReader(in), out: out}
}

func (p *PromptApprover) ApproveConnect(ctx context.Context, accounts []domain.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(accounts) == 0 {
		return false, nil
	}
	return p.ask(fmt.Sprintf("Connect account %s? [y/N] ", accounts[0])), nil
}

func (p *PromptApprover) ApproveSign(addr domain.Address, digest []byte) bool {
	return p.ask(fmt.Sprintf("Sign transaction %x as %s? [y/N] ", digest[:min(8, len(digest))], addr.Short()))
}

func (p *PromptApprover) ask(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
