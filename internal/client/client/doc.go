// Package client contains the client-side building blocks of the gophstamp
// CLI.
//
// # Overview
//
//  1. Client, the transport-agnostic contract used by the services layer.
//  2. GRPCClient, its gRPC implementation. It keeps the current bearer token
//     and attaches it to every outgoing call through a unary interceptor.
//     Server statuses are decoded back into the shared sentinel errors from
//     package common, so callers match them with errors.Is.
//  3. InitDatabase and RunMigrations, which open the local SQLite database
//     and apply the embedded goose migrations.
//
// An unreachable server surfaces as ErrUnavailable.
package client
