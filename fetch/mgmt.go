package fetch

import (
	"fmt"
	"time"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	mgmt "github.com/zjkmxy/go-ndn/pkg/ndn/mgmt_2022"
	"github.com/zjkmxy/go-ndn/pkg/utils"
)

// execMgmtCmd issues one signed command to the forwarder's management
// module and waits for its control response.
func (c *Client) execMgmtCmd(module string, cmd string, args *mgmt.ControlArgs) error {
	intCfg := &ndn.InterestConfig{
		Lifetime: utils.IdPtr(1 * time.Second),
	}
	finalName, wire, err := c.mgmtConf.MakeCmd(module, cmd, args, intCfg)
	if err != nil {
		return err
	}

	ch := make(chan error, 1)
	err = c.Express(finalName, intCfg, wire,
		func(result Result, data ndn.Data, rawData enc.Wire, sigCovered enc.Wire, nackReason uint64) {
			switch result {
			case ResultNack:
				ch <- fmt.Errorf("nack received: %v", nackReason)
			case ResultTimeout:
				ch <- ndn.ErrDeadlineExceed
			case ResultCancel:
				ch <- ErrCanceled
			case ResultData:
				ret, err := mgmt.ParseControlResponse(enc.NewWireReader(data.Content()), true)
				if err != nil {
					ch <- err
				} else if ret.Val == nil {
					ch <- fmt.Errorf("improper response")
				} else if ret.Val.StatusCode != 200 {
					ch <- fmt.Errorf("command failed due to error %d: %s",
						ret.Val.StatusCode, ret.Val.StatusText)
				} else {
					ch <- nil
				}
			default:
				ch <- fmt.Errorf("unknown result: %v", result)
			}
		})
	if err != nil {
		return err
	}
	return <-ch
}

// RegisterRoute asks the forwarder to route requests under prefix to this
// client's face.
func (c *Client) RegisterRoute(prefix enc.Name) error {
	err := c.execMgmtCmd("rib", "register", &mgmt.ControlArgs{Name: prefix})
	if err != nil {
		c.log.WithField("name", prefix.String()).Errorf("Failed to register prefix: %v", err)
		return err
	}
	c.log.WithField("name", prefix.String()).Info("Prefix registered.")
	return nil
}

// UnregisterRoute removes a route previously set up by RegisterRoute.
func (c *Client) UnregisterRoute(prefix enc.Name) error {
	err := c.execMgmtCmd("rib", "unregister", &mgmt.ControlArgs{Name: prefix})
	if err != nil {
		c.log.WithField("name", prefix.String()).Errorf("Failed to unregister prefix: %v", err)
		return err
	}
	c.log.WithField("name", prefix.String()).Info("Prefix unregistered.")
	return nil
}
