package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/turnroom/turnroom/pkg/agent"
	"github.com/turnroom/turnroom/pkg/api"
	xos "github.com/turnroom/turnroom/pkg/os"
)

var (
	flagName  string
	flagCodec string
	flagSpeak time.Duration

	flagReconnect bool
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a room as a headless participant",
	Long: `Join a room as a headless participant.
The probe calls everybody in the room, streams silence
during its turn and gives the turn back after --speak.

Examples:
  probe join --name bot
  probe join --name bot --room 6ba7b810-9dad-11d1-80b4-00c04fd430c8 --codec msgpack`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		if flags.Changed("name") {
			conf.Agent.Name = flagName
		}
		if flags.Changed("codec") {
			conf.Agent.Codec = flagCodec
		}
		if flags.Changed("speak") {
			conf.Agent.Speak = flagSpeak
		}
		return join(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	flags := joinCmd.Flags()
	flags.StringVarP(&flagName, "name", "n", "", "Participant name")
	flags.StringVar(&flagCodec, "codec", "", "Packet codec: json or msgpack")
	flags.DurationVar(&flagSpeak, "speak", 0, "How long to hold the turn, 0 holds it until revoked")
	flags.BoolVar(&flagReconnect, "reconnect", false, "Join again when the connection is lost")
}

func join(ctx context.Context, w io.Writer) error {
	stop := xos.ExpectTermination()
	retry := agent.NewBackoff(time.Second, 30*time.Second)
	for {
		joined, err := session(ctx, w, stop)
		if err == nil || !flagReconnect || errors.Is(err, agent.ErrRejected) {
			return err
		}
		if joined {
			retry.Reset()
		}
		wait := retry.Next()
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%v, reconnect in %v", err, wait)))
		select {
		case <-time.After(wait):
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session stays in the room until it's interrupted or disconnected.
func session(ctx context.Context, w io.Writer, stop <-chan struct{}) (joined bool, err error) {
	a, err := agent.New(conf, log)
	if err != nil {
		return false, err
	}
	defer a.Close()

	jctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = a.Join(jctx); err != nil {
		return false, err
	}
	fmt.Fprintln(w, SuccessStyle.Render(fmt.Sprintf("joined room %v as %v", a.Room(), conf.Agent.Name)))

	for {
		select {
		case e := <-a.Events():
			fmt.Fprintln(w, describe(a, e))
		case <-a.Done():
			return true, errors.New("disconnected")
		case <-stop:
			return true, nil
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

func describe(a *agent.Agent, e agent.Event) string {
	name := func(id string) string {
		if n, ok := a.Roster()[id]; ok {
			return n
		}
		return id
	}
	switch e.T {
	case api.RoomState, api.TurnAssigned:
		if e.Peer == "" {
			return MutedStyle.Render("nobody speaks")
		}
		if e.Peer == a.Id() {
			return SpeakerStyle.Render("> my turn")
		}
		return SpeakerStyle.Render("> " + name(e.Peer) + " speaks")
	case api.ParticipantJoined:
		return SuccessStyle.Render("+ " + e.Text)
	case api.ParticipantLeft:
		return WarningStyle.Render("- " + e.Peer)
	case api.SessionOffer, api.SessionAnswer:
		return MutedStyle.Render(fmt.Sprintf("%v %v", e.T, name(e.Peer)))
	case api.TurnRevoked:
		return WarningStyle.Render("my time is up")
	case api.TextMessage:
		return e.Peer + ": " + e.Text
	case api.Error:
		return ErrorStyle.Render(e.Text)
	}
	return e.T.String()
}
