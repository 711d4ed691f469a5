// Package client implements the client side of sKV on top of a client transport.
//
// Key Components:
//
//   - NewRPCStore: Creates a store.IStore that sends every operation as one
//     request to a server. ERR values are returned as *store.Error carrying the
//     code of the value, transport failures as wrapped errors.
//
//   - Format: Renders any response value in the line format of the command line
//     client, e.g. "(int) 1" or "(arr) len=2 ... (arr) end".
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:1234"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	s, err := client.NewRPCStore(config, tcp.NewTCPClientTransport())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer s.Close()
//
//	_ = s.Set("mykey", []byte("myvalue"))
//	value, exists, _ := s.Get("mykey")
//
// Thread Safety:
//
//	The store is safe for concurrent use. Requests of concurrent callers are
//	spread over the connections of the transport.
package client
