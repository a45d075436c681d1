package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ivlev/lessonboard/internal/transport"
)

const controlsHelp = "[*] Команды: n - вперёд, p - назад, pause, resume, auto, ? <вопрос>, q - выход"

// Control runs one console command on the loop.
func (p *Player) Control(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	if cmd == "q" || cmd == "quit" {
		p.Quit()
		return nil
	}

	var err error
	invokeErr := p.loop.Invoke(ctx, func() {
		switch cmd {
		case "n", "next":
			if p.client != nil {
				err = p.client.NextStep()
			} else {
				err = p.session.Next()
			}
		case "p", "prev":
			if p.client != nil {
				err = p.client.PreviousStep()
			} else {
				err = p.session.Previous()
			}
		case "pause":
			err = p.session.Pause()
		case "resume":
			err = p.session.Resume()
		case "auto":
			on := !p.session.State().AutoAdvance
			p.session.SetAutoAdvance(on)
		case "?", "ask":
			if p.client == nil {
				err = transport.ErrNotConnected
				return
			}
			err = p.client.SendMessage(strings.TrimSpace(arg))
		case "h", "help":
			fmt.Fprintln(p.out, controlsHelp)
		default:
			err = fmt.Errorf("неизвестная команда %q", cmd)
		}
	})
	if invokeErr != nil {
		return invokeErr
	}
	return err
}

// ReadControls feeds console lines to Control until r ends or ctx is done.
func (p *Player) ReadControls(ctx context.Context, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := p.Control(ctx, sc.Text()); err != nil {
			fmt.Fprintf(p.out, "[!] %v\n", err)
		}
	}
}
