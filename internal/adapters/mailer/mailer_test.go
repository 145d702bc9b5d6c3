package mailer_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/okian/peereval/internal/adapters/mailer"
	"github.com/okian/peereval/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildMessage(t *testing.T) {
	Convey("Given a passcode message", t, func() {
		msg, err := mailer.BuildMessage("noreply@example.com", "alice@example.com", "Peer Eval Code", "Your Code is: 123456")

		Convey("Then headers and body are rendered", func() {
			So(err, ShouldBeNil)
			s := string(msg)
			So(s, ShouldContainSubstring, "From: <noreply@example.com>\r\n")
			So(s, ShouldContainSubstring, "To: <alice@example.com>\r\n")
			So(s, ShouldContainSubstring, "Subject: Peer Eval Code\r\n")
			So(s, ShouldContainSubstring, "Content-Type: text/plain; charset=utf-8\r\n")
			So(s, ShouldEndWith, "\r\n\r\nYour Code is: 123456\r\n")
		})
	})

	Convey("Given a non-ASCII subject", t, func() {
		msg, err := mailer.BuildMessage("noreply@example.com", "a@example.com", "Évaluation", "x")
		So(err, ShouldBeNil)
		So(string(msg), ShouldContainSubstring, "Subject: =?utf-8?q?")
	})

	Convey("Given invalid addresses", t, func() {
		_, err := mailer.BuildMessage("not an address", "a@example.com", "s", "b")
		So(err, ShouldNotBeNil)
		_, err = mailer.BuildMessage("noreply@example.com", "", "s", "b")
		So(err, ShouldNotBeNil)
	})
}

func TestSMTPSender_Unreachable(t *testing.T) {
	Convey("Given an SMTP server that is not listening", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		port := ln.Addr().(*net.TCPAddr).Port
		So(ln.Close(), ShouldBeNil)

		s := mailer.NewSMTPSender("127.0.0.1", "noreply@example.com", "pw",
			mailer.WithPort(port),
			mailer.WithDialTimeout(time.Second),
		)

		Convey("Then Send reports a dial failure", func() {
			err := s.Send(context.Background(), "alice@example.com", "Peer Eval Code", "Your Code is: 1")
			So(errors.Is(err, mailer.ErrDial), ShouldBeTrue)
		})
	})

	Convey("Given a malformed recipient", t, func() {
		s := mailer.NewSMTPSender("127.0.0.1", "noreply@example.com", "pw")

		Convey("Then Send fails before dialing", func() {
			err := s.Send(context.Background(), "nobody", "s", "b")
			So(errors.Is(err, mailer.ErrSend), ShouldBeTrue)
		})
	})
}

func TestLogSender(t *testing.T) {
	Convey("Given a log sender", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithWriter(&buf)), ShouldBeNil)
		s := mailer.NewLogSender(logger.Get())

		err := s.Send(context.Background(), "alice@example.com", "Peer Eval Code", "Your Code is: 654321")

		Convey("Then the message is logged", func() {
			So(err, ShouldBeNil)
			So(strings.Contains(buf.String(), "654321"), ShouldBeTrue)
			So(buf.String(), ShouldContainSubstring, "alice@example.com")
		})
	})
}
