// Package common provides the configuration structures and the logging setup
// shared by the sKV server, the client and the CLI.
//
// Key Components:
//
//   - ServerConfig: Configuration of the server, including the listening
//     endpoint, socket options, protocol limits, the connection policy (idle
//     timeout, connection limit) and the metrics endpoint.
//
//   - ClientConfig: Configuration for client components, controlling endpoints,
//     connections per endpoint, timeouts and retry behavior.
//
//   - Logger: Custom logging implementation that plugs into the dragonboat
//     logger facade, so every package obtains its logger with
//     logger.GetLogger(name) and all output shares one format.
package common
