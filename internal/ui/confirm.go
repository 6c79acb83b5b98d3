package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Mohsinsiddi/w3ico/internal/display"
	"github.com/ethereum/go-ethereum/core/types"
)

// Prompter asks yes/no questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StdPrompter prompts on stdin/stdout.
func StdPrompter() *Prompter { return NewPrompter(os.Stdin, os.Stdout) }

// Confirm prompts the user with a yes/no question. Returns true for yes.
func (p *Prompter) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", StyleWarning.Render(prompt))
	return p.answer()
}

// ConfirmDanger is like Confirm but styled with the error color.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", StyleError.Render("⚠ "+prompt))
	return p.answer()
}

// ApproveTx shows what is about to be signed and asks for approval. Its
// signature matches wallet.Approver.
func (p *Prompter) ApproveTx(tx *types.Transaction) bool {
	fmt.Fprintln(p.out, KeyValueBlock("Signature request", TxSummary(tx)))
	return p.Confirm("Sign and send this transaction?")
}

func (p *Prompter) answer() bool {
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// TxSummary lists the fields a user should check before signing.
func TxSummary(tx *types.Transaction) [][2]string {
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	pairs := [][2]string{
		{"To", to},
		{"Value", display.ToUnitAmount(tx.Value()).String() + " ETH"},
		{"Gas limit", fmt.Sprintf("%d", tx.Gas())},
		{"Nonce", fmt.Sprintf("%d", tx.Nonce())},
	}
	if tx.Type() == types.LegacyTxType {
		pairs = append(pairs, [2]string{"Gas price", tx.GasPrice().String() + " wei"})
	} else {
		pairs = append(pairs, [2]string{"Max fee", tx.GasFeeCap().String() + " wei"})
	}
	return pairs
}
