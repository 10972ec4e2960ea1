package main

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/filegrind/rsocket-fragment/duplex"
	"github.com/filegrind/rsocket-fragment/frame"
	"github.com/filegrind/rsocket-fragment/logging"
)

var (
	dialAddr     string
	dialPayload  int
	dialMetadata string
)

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Connect, send one REQUEST_RESPONSE frame, print what comes back reassembled",
	RunE:  runDial,
}

func init() {
	dialCmd.Flags().StringVar(&dialAddr, "addr", "127.0.0.1:7878", "address to dial")
	dialCmd.Flags().IntVar(&dialPayload, "payload-size", 4096, "size in bytes of the data payload to send")
	dialCmd.Flags().StringVar(&dialMetadata, "metadata", "", "optional metadata string to attach")
}

func runDial(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := net.Dial("tcp", dialAddr)
	if err != nil {
		return err
	}

	log := logging.Default.With().Str("connection_id", uuid.NewString()).Logger()
	log.Info().Str("addr", dialAddr).Int("mtu", cfg.MTU).Msg("connected")

	nd := duplex.NewNetDuplex(conn)
	fd := duplex.New(nd, cfg.MTU, true, cfg.MaxReassemblySize, log)
	defer fd.Dispose()

	data := make([]byte, dialPayload)
	for i := range data {
		data[i] = byte(i)
	}

	req := &frame.Frame{
		StreamID: 1,
		Type:     frame.RequestResponse,
		Data:     data,
	}
	if dialMetadata != "" {
		req.Flags |= frame.FlagM
		req.Metadata = []byte(dialMetadata)
	}

	ctx := context.Background()
	if err := fd.SendOne(ctx, req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	log.Info().Int("data_len", len(req.Data)).Msg("sent request")

	reply, err := fd.Receive(ctx)
	if err != nil {
		return fmt.Errorf("receive reply: %w", err)
	}

	fmt.Printf("reassembled reply: type=%s stream_id=%d metadata_len=%d data_len=%d\n",
		reply.Type, reply.StreamID, len(reply.Metadata), len(reply.Data))
	return nil
}
