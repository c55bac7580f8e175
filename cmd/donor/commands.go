package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"organchain/internal/donor"
	"organchain/internal/profile/client"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	platformstrings "organchain/pkg/platform/strings"
)

var errQuit = errors.New("quit")

// dispatch runs one top-level command. One-shot commands connect first; the
// shell leaves connection to the user.
func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "shell":
		return a.shell(ctx)
	case "status", "register", "revoke", "pending":
		if out := a.controller.Connect(ctx); out.Kind == donor.OutcomeFailure {
			a.printOutcome(out)
			return out.Err
		}
		return a.exec(ctx, cmd, rest)
	default:
		printUsage(a.out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// exec runs a single command against the connected controller. Action
// failures are printed, not returned; only usage and I/O errors escape.
func (a *app) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "connect":
		a.printOutcome(a.controller.Connect(ctx))
	case "restore":
		a.printOutcome(a.controller.Restore(ctx))
	case "refresh":
		a.printOutcome(a.controller.Refresh(ctx))
	case "status":
		a.printSnapshot(a.controller.Snapshot())
	case "register":
		in, err := parseRegister(args, a.out)
		if err != nil {
			return err
		}
		a.printOutcome(a.controller.Register(ctx, in))
	case "revoke":
		a.printOutcome(a.controller.Revoke(ctx))
	case "pending":
		return a.printPending(ctx)
	case "accounts":
		return a.printAccounts(ctx)
	case "switch":
		if len(args) != 1 {
			return errors.New("usage: switch <address>")
		}
		addr, err := domain.ParseAddress(args[0])
		if err != nil {
			return err
		}
		return a.accounts.Switch(addr)
	case "lock":
		a.accounts.Lock()
	case "audit":
		return a.printAudit(ctx)
	case "help":
		printShellHelp(a.out)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

// shell reads commands line by line until EOF or quit. Wallet prompts read
// from the same input.
func (a *app) shell(ctx context.Context) error {
	fmt.Fprintln(a.out, "organchain donor shell; type help for commands")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(a.out, "> ")
		line, err := a.in.ReadString('\n')
		fields, serr := splitLine(line)
		if serr != nil {
			fmt.Fprintln(a.out, "error:", serr)
		} else if len(fields) > 0 {
			switch cerr := a.exec(ctx, fields[0], fields[1:]); {
			case errors.Is(cerr, errQuit):
				return nil
			case cerr != nil:
				fmt.Fprintln(a.out, "error:", cerr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}
	}
}

// splitLine splits a shell line on spaces. Double quotes group words.
func splitLine(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
		inWord bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if inWord {
				fields = append(fields, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if inWord {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

func parseRegister(args []string, out io.Writer) (donor.RegisterInput, error) {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		in     donor.RegisterInput
		organs string
	)
	fs.StringVar(&in.FullName, "name", "", "full name")
	fs.IntVar(&in.Age, "age", 0, "age in years")
	fs.StringVar(&in.BloodType, "blood", "", "blood type, e.g. O+")
	fs.StringVar(&organs, "organs", "", "comma-separated organs to donate")
	fs.StringVar(&in.MedicalHistory, "history", "", "medical history")
	fs.StringVar(&in.Email, "email", "", "contact email")
	fs.StringVar(&in.Phone, "phone", "", "contact phone")
	fs.StringVar(&in.EmergencyContact, "emergency", "", "emergency contact")
	if err := fs.Parse(args); err != nil {
		return donor.RegisterInput{}, err
	}
	in.Organs = platformstrings.SplitList(organs, ",")
	return in, nil
}

func (a *app) printOutcome(out donor.Outcome) {
	line := fmt.Sprintf("%s: %s", out.Action, out.Kind)
	if out.TxID != "" {
		line += " (tx " + out.TxID + ")"
	}
	switch {
	case out.Err != nil:
		line += ": " + describe(out.Err)
	case out.Warning != nil:
		line += ": " + describe(out.Warning)
	}
	fmt.Fprintln(a.out, line)
}

// describe renders an error for the user. Revert reasons and other coded
// messages are shown as-is; an unreachable profile store gets a hint.
func describe(err error) string {
	msg := dErrors.Reason(err)
	if msg == "" {
		msg = err.Error()
	}
	if client.IsUnavailable(err) {
		msg += " (profile store unreachable; data shown may be incomplete)"
	}
	return msg
}

func (a *app) printSnapshot(s donor.Snapshot) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "state\t%s\n", s.State)
	if !s.Identity.IsZero() {
		fmt.Fprintf(tw, "identity\t%s\n", s.Identity)
	}
	if s.Err != nil {
		fmt.Fprintf(tw, "error\t%s\n", describe(s.Err))
	}
	if s.Warning != nil {
		fmt.Fprintf(tw, "warning\t%s\n", describe(s.Warning))
	}
	if v := s.View; v != nil {
		fmt.Fprintf(tw, "name\t%s\n", v.FullName)
		fmt.Fprintf(tw, "age\t%d\n", v.Age)
		fmt.Fprintf(tw, "blood type\t%s\n", v.BloodType)
		fmt.Fprintf(tw, "organs\t%s\n", strings.Join(domain.OrganStrings(v.Organs), ", "))
		if !v.RegistrationDate.IsZero() {
			fmt.Fprintf(tw, "registered\t%s\n", v.RegistrationDate.Format("2006-01-02 15:04 MST"))
		}
		fmt.Fprintf(tw, "status\t%s\n", v.Status)
		fmt.Fprintf(tw, "source\t%s\n", v.Source)
	}
	_ = tw.Flush()
}

func (a *app) printPending(ctx context.Context) error {
	snap := a.controller.Snapshot()
	if snap.Identity.IsZero() {
		return dErrors.New(dErrors.CodeWalletUnavailable, "no wallet connected")
	}
	entries, err := a.journal.List(ctx, snap.Identity)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no pending transactions")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TX\tOP\tSUBMITTED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.TxID, e.Op, e.SubmittedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func (a *app) printAccounts(ctx context.Context) error {
	accounts, err := a.accounts.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(a.out, "no authorised accounts; run connect")
		return nil
	}
	for i, addr := range accounts {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %s\n", marker, addr)
	}
	return nil
}

func (a *app) printAudit(ctx context.Context) error {
	if a.audit == nil {
		return errors.New("audit sink is disabled")
	}
	snap := a.controller.Snapshot()
	if snap.Identity.IsZero() {
		return dErrors.New(dErrors.CodeWalletUnavailable, "no wallet connected")
	}
	events, err := a.audit.List(ctx, snap.Identity)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format("15:04:05"), e.Action, e.Outcome, e.TxID, e.Reason)
	}
	return tw.Flush()
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  connect | restore | refresh | status")
	fmt.Fprintln(w, "  register -name NAME -age N -blood TYPE -organs a,b [-history TEXT] [-email ADDR] [-phone N] [-emergency TEXT]")
	fmt.Fprintln(w, "  revoke")
	fmt.Fprintln(w, "  accounts | switch <address> | lock")
	fmt.Fprintln(w, "  pending | audit")
	fmt.Fprintln(w, "  quit")
}
