// Command client issues Get/Set/Delete queries against a Pastry overlay
// node, which forwards them to whichever node actually owns the key.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"pastryring/id"
	"pastryring/internal/rpc"
)

func main() {
	var (
		serverAddr string
		timeout    time.Duration
	)

	cmd := &cobra.Command{Use: "client"}
	cmd.PersistentFlags().StringVarP(&serverAddr, "server-addr", "s", "", "node address to connect to (required)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	keyGen := id.NewGenerator()

	dial := func() (rpc.NodeServiceClient, func(), error) {
		if serverAddr == "" {
			return nil, nil, fmt.Errorf("--server-addr not set")
		}
		cc, err := grpc.Dial(serverAddr, grpc.WithInsecure())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
		}
		return rpc.NewNodeServiceClient(cc), func() { cc.Close() }, nil
	}

	getCmd := &cobra.Command{
		Use:  "get [key]",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			resp, err := cli.Query(ctx, &rpc.QueryRequest{
				Type: rpc.QueryGet,
				Key:  keyGen.Get(args[0]),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "get failed: %s\n", err)
				return nil
			}
			if resp.Error != rpc.QueryErrorNone {
				fmt.Fprintf(os.Stderr, "get failed: %s\n", resp.Error)
				return nil
			}
			fmt.Println(string(resp.Value))
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:  "set [key] [value]",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			resp, err := cli.Query(ctx, &rpc.QueryRequest{
				Type:     rpc.QuerySet,
				Key:      keyGen.Get(args[0]),
				Value:    []byte(args[1]),
				HasValue: true,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "set failed: %s\n", err)
				return nil
			}
			if resp.Error != rpc.QueryErrorNone {
				fmt.Fprintf(os.Stderr, "set failed: %s\n", resp.Error)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:  "delete [key]",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			resp, err := cli.Query(ctx, &rpc.QueryRequest{
				Type: rpc.QueryDelete,
				Key:  keyGen.Get(args[0]),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "delete failed: %s\n", err)
				return nil
			}
			if resp.Error != rpc.QueryErrorNone {
				fmt.Fprintf(os.Stderr, "delete failed: %s\n", resp.Error)
			}
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, deleteCmd)
	_ = cmd.Execute()
}
