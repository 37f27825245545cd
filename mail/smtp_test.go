package mail

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeSMTP accepts one session and records the envelope and data.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	from string
	rcpt []string
	data string
	done chan struct{}
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch cmd {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250 fake")
		case "MAIL":
			f.mu.Lock()
			f.from = line
			f.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "RCPT":
			f.mu.Lock()
			f.rcpt = append(f.rcpt, line)
			f.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = string(data)
			f.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unsupported")
		}
	}
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := newFakeSMTP(t)
	s, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	err = s.Send(context.Background(), Message{To: "ada@example.com", Subject: "Your code", Body: "Code: 482913\n"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	<-srv.done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !strings.Contains(srv.from, "noreply@example.com") {
		t.Fatalf("unexpected MAIL FROM %q", srv.from)
	}
	if len(srv.rcpt) != 1 || !strings.Contains(srv.rcpt[0], "ada@example.com") {
		t.Fatalf("unexpected RCPT %v", srv.rcpt)
	}
	r := textproto.NewReader(bufio.NewReader(strings.NewReader(srv.data)))
	hdr, err := r.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("parse headers: %v", err)
	}
	if hdr.Get("Subject") != "Your code" || hdr.Get("To") != "ada@example.com" {
		t.Fatalf("unexpected headers %v", hdr)
	}
	if !strings.Contains(srv.data, "Code: 482913") {
		t.Fatalf("body missing from data %q", srv.data)
	}
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 25, From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := s.Send(context.Background(), Message{To: "a@b.c\r\nBcc: x@y.z"}); err == nil {
		t.Fatal("expected header injection to be rejected")
	}
}

func TestSMTPSenderDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	s, _ := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, From: "f@x.y"})
	if err := s.Send(context.Background(), Message{To: "a@b.c"}); err == nil {
		t.Fatal("expected dial failure, got nil (port " + strconv.Itoa(port) + ")")
	}
}
