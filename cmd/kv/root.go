package kv

import (
	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/spf13/cobra"
)

var (
	// rpcTransport is connected lazily by connect
	rpcTransport transport.IRPCClientTransport

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value operations against a sKV server",
		PersistentPreRunE: setupKVClient,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if rpcTransport != nil {
				_ = rpcTransport.Close()
			}
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	for _, cmd := range verbCommands() {
		KeyValueCommands.AddCommand(cmd)
	}
	KeyValueCommands.AddCommand(rawCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient binds the flags of the invoked command
func setupKVClient(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

// connect creates and connects the client transport
func connect() (transport.IRPCClientTransport, error) {
	t, err := util.GetTransport()
	if err != nil {
		return nil, err
	}
	if err := t.Connect(*util.GetClientConfig()); err != nil {
		return nil, err
	}
	rpcTransport = t
	return t, nil
}

// connectStore creates a store.IStore backed by a server
func connectStore() (store.IStore, error) {
	t, err := util.GetTransport()
	if err != nil {
		return nil, err
	}
	s, err := client.NewRPCStore(*util.GetClientConfig(), t)
	if err != nil {
		return nil, err
	}
	rpcTransport = t
	return s, nil
}
