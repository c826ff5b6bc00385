package main

import (
	"context"
	"errors"
	"flag"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	basic_engine "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	sec "github.com/zjkmxy/go-ndn/pkg/security"

	"go-ndnfetch/config"
	"go-ndnfetch/fetch"
	"go-ndnfetch/validator"
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

	prefix, prefixParseError := enc.NameFromStr(conf.App.Prefix + "/randomData")
	if prefixParseError != nil {
		logger.Fatalf("Invalid prefix %q: %+v", conf.App.Prefix, prefixParseError)
	}
	// Ask for fresh content by timestamping the request name.
	name := append(prefix, enc.NewTimestampComponent(uint64(ndnTimer.Now().UnixMilli())))

	ecdsaValidator := validator.NewEcdsaValidator(client, conf.Lifetime())
	response, fetchError := client.Fetch(context.Background(), name, fetch.Params{
		MustBeFresh: true,
		Lifetime:    conf.Lifetime(),
	}, ecdsaValidator)

	var nackError fetch.NackError
	switch {
	case fetchError == nil:
		logger.Infof("Received data name: %s", response.Name.String())
		logger.Infof("Content: %s", string(response.Content))
	case errors.As(fetchError, &nackError):
		logger.Errorf("Request nacked with reason=%d", uint64(nackError))
	case errors.Is(fetchError, fetch.ErrTimeout):
		logger.Error("Request timed out")
	case errors.Is(fetchError, fetch.ErrCanceled):
		logger.Error("Request canceled")
	case errors.Is(fetchError, fetch.ErrValidationFailed):
		logger.Error("Received data failed validation")
	default:
		logger.Errorf("Request failed: %+v", fetchError)
	}
}
