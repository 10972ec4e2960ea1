package main

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/filegrind/rsocket-fragment/duplex"
	"github.com/filegrind/rsocket-fragment/frame"
	"github.com/filegrind/rsocket-fragment/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept one connection and echo each reassembled frame back as NEXT_COMPLETE, fragmented",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7878", "address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return err
	}
	defer ln.Close()

	log := logging.Default.With().Str("connection_id", uuid.NewString()).Logger()
	log.Info().Str("addr", serveAddr).Int("mtu", cfg.MTU).Msg("listening")

	conn, err := ln.Accept()
	if err != nil {
		return err
	}

	nd := duplex.NewNetDuplex(conn)
	// NetDuplex delimits fragments on the raw TCP stream using the same
	// 3-byte length prefix the adapter itself understands, so it always
	// runs with encode_length on regardless of what the config says.
	fd := duplex.New(nd, cfg.MTU, true, cfg.MaxReassemblySize, log)
	defer fd.Dispose()

	ctx := context.Background()
	for {
		f, err := fd.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("peer closed connection")
				return nil
			}
			log.Error().Err(err).Msg("receive failed")
			return err
		}

		log.Info().
			Uint32("stream_id", f.StreamID).
			Str("type", f.Type.String()).
			Int("metadata_len", len(f.Metadata)).
			Int("data_len", len(f.Data)).
			Msg("reassembled inbound frame")

		reply := &frame.Frame{
			StreamID: f.StreamID,
			Type:     frame.NextComplete,
			Flags:    frame.FlagN | frame.FlagC,
			Data:     f.Data,
		}
		if f.HasMetadata() {
			reply.Flags |= frame.FlagM
			reply.Metadata = f.Metadata
		}
		if err := fd.SendOne(ctx, reply); err != nil {
			log.Error().Err(err).Msg("reply send failed")
			return err
		}
	}
}
