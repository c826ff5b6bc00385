package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	basic_engine "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	sec "github.com/zjkmxy/go-ndn/pkg/security"

	"go-ndnfetch/config"
	"go-ndnfetch/fetch"
	"go-ndnfetch/keychain"
	"go-ndnfetch/produce"
)

func main() {
	log.SetLevel(log.InfoLevel)
	logger := log.WithField("module", "main")

	configFilePath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	conf := config.Default()
	if *configFilePath != "" {
		var configReadError error
		conf, configReadError = config.Read(*configFilePath)
		if configReadError != nil {
			logger.Fatalf("Failed to read config: %+v", configReadError)
		}
	}

	// Start client
	ndnTimer := basic_engine.NewTimer()
	ndnFace := basic_engine.NewStreamFace(conf.Face.Network, conf.Face.Address, conf.Face.Network == "unix")
	client := fetch.NewClient(ndnFace, ndnTimer, sec.NewSha256IntSigner(ndnTimer))
	clientStartError := client.Start()
	if clientStartError != nil {
		logger.Fatalf("Unable to start client: %+v", clientStartError)
	}
	defer client.Shutdown()

	prefix, prefixParseError := enc.NameFromStr(conf.App.Prefix)
	if prefixParseError != nil {
		logger.Fatalf("Invalid prefix %q: %+v", conf.App.Prefix, prefixParseError)
	}

	// Generate the signing identity and its self-signed certificate
	identity, identityError := keychain.New(prefix, conf.CertValidity(), ndnTimer)
	if identityError != nil {
		logger.Fatalf("Failed to generate identity: %+v", identityError)
	}
	logger.Infof("Signing with key: %s", identity.KeyName.String())

	producer := produce.New(client, identity, prefix, conf.Freshness())
	serveError := producer.Serve()
	if serveError != nil {
		logger.Fatalf("Error encountered while attempting to serve: %+v", serveError)
	}
	defer producer.Stop()

	// Wait for keyboard quit signal
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	receivedSig := <-sigChannel
	logger.Infof("Received signal %+v - exiting", receivedSig)
}
