package main

//
// The connect subcommand
//

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/ooni/sslclient/internal/bytecounter"
	"github.com/ooni/sslclient/internal/runtimex"
	"github.com/ooni/sslclient/internal/sslclient"
	"github.com/ooni/sslclient/internal/transport"
	"github.com/spf13/cobra"
)

// connectSubcommand returns the connect subcommand.
func connectSubcommand(globalOptions *Options) *cobra.Command {
	config := &connectCommand{
		globalOptions: globalOptions,
		readSize:      4096,
	}
	cmd := &cobra.Command{
		Use:   "connect [ADDRESS]",
		Short: "Connects to ADDRESS (or to the profile's address) and prints the TLS session parameters",
		Run:   config.main,
		Args:  cobra.MaximumNArgs(1),
	}
	flags := cmd.Flags()
	config.profileFlags.register(flags)
	flags.StringVar(&config.send, "send", "", "data to write after the handshake (Go escape sequences are allowed)")
	flags.IntVar(&config.readSize, "read-size", 4096, "maximum number of bytes to read after writing --send data")
	return cmd
}

// connectCommand is the connect subcommand configuration.
type connectCommand struct {
	globalOptions *Options
	profileFlags  profileFlags
	readSize      int
	send          string
}

// main is the main function of the connect subcommand.
func (cc *connectCommand) main(_ *cobra.Command, args []string) {
	var address string
	if len(args) > 0 {
		address = args[0]
	}
	if err := cc.run(context.Background(), log.Log, address); err != nil {
		log.WithError(err).Fatal("sslprobe connect failed")
	}
}

// run connects, performs the handshake and logs the session parameters.
func (cc *connectCommand) run(ctx context.Context, logger log.Interface, address string) error {
	profile, err := loadProfile(cc.globalOptions, address, &cc.profileFlags)
	if err != nil {
		return err
	}

	conn, err := transport.Dial(ctx, logger, "tcp", profile.Address)
	if err != nil {
		return err
	}
	defer conn.Close()

	counter := bytecounter.New()
	txp := bytecounter.WrapTransport(transport.New(conn, profile.ReceiveTimeout()), counter)
	client, err := sslclient.New(txp, profile.ClientConfig(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Handshake(); err != nil {
		var certReq *sslclient.ClientCertificateRequestedError
		if errors.As(err, &certReq) {
			logger.Warnf("the server wants a client certificate; acceptable CAs: %v", certReq.CAList)
		}
		return err
	}

	md := runtimex.Try1(client.Metadata())
	logger.WithFields(log.Fields{
		"type":  "section_title",
		"title": profile.Address,
	}).Info("")
	logger.WithFields(metadataFields(profile.ServerName, md)).Info("session")

	if cc.send != "" {
		if err := cc.exchange(logger, client); err != nil {
			return err
		}
	}

	if err := client.Shutdown(); err != nil {
		logger.Warnf("shutdown: %s", err.Error())
	}
	logger.WithFields(log.Fields{
		"type":           "table",
		"bytes_sent":     counter.BytesSent(),
		"bytes_received": counter.BytesReceived(),
	}).Info("traffic")
	return nil
}

// exchange writes the --send data and reads the response.
func (cc *connectCommand) exchange(logger log.Interface, client *sslclient.Client) error {
	data, err := unescape(cc.send)
	if err != nil {
		return err
	}
	if _, err := client.Write(data); err != nil {
		return err
	}
	response, err := client.Read(cc.readSize)
	if errors.Is(err, sslclient.ErrPeerClosed) {
		logger.Info("the peer closed the connection without responding")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Infof("received %d bytes: %q", len(response), response)
	return nil
}

// unescape interprets Go escape sequences such as \r and \n.
func unescape(s string) ([]byte, error) {
	value, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}
