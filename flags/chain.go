package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

// ChainFlags covers the connection to the host chain the token layer
// observes.

func ChainFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "chain.url",
			Usage: "RPC endpoint of the host-chain node to follow",
			Value: "http://127.0.0.1:8332",
		},
		cli.DurationFlag{
			Name:  "chain.poll-interval",
			Usage: "How often to poll the host chain for new blocks",
			Value: 10 * time.Second,
		},
		cli.IntFlag{
			Name:  "chain.confirmations",
			Usage: "Blocks to wait before treating a host-chain block as confirmed",
			Value: 1,
		},
	}
}

// FeeFlags isolates transaction-builder fee policy overrides.
func FeeFlags() []cli.Flag {
	return []cli.Flag{
		cli.Int64Flag{
			Name:  "fee.rate",
			Usage: "Relay fee rate in base units per kilobyte",
			Value: 3000,
		},
		cli.Int64Flag{
			Name:  "fee.dust",
			Usage: "Smallest output value considered spendable",
			Value: 546,
		},
	}
}
