/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package iotsdk lets a constrained device hold a P-256 identity and submit
// transactions to a Hyperledger Fabric network through an HTTP gateway. The
// gateway builds every payload and returns its digest; the private key never
// leaves the device.
//
// Packages for end developer usage
//
// pkg/fabsdk: Builds the whole client stack from a configuration file and
// exposes the pipeline.
//
// pkg/client/pipeline: Drives identity generation and transaction submission,
// reports the current stage and rejects calls while a pipeline is running.
//
// pkg/msp: Enrolls a key pair with the CA through the gateway and stores the
// issued certificates.
//
// pkg/fab/txn: Proposes, signs and broadcasts a transaction, and checks that a
// certificate is registered on the ledger.
//
// cmd/hlfiot: Command line front end of the above.
//
// Basic workflow
//
//      1) Instantiate a fabsdk instance using a configuration.
//      2) Call Pipeline().GenerateIdentity, or RestoreIdentity with a stored identity.
//      3) Call Pipeline().SubmitTransaction and inspect the gateway acknowledgment.
//      4) Call fabsdk.Close() to stop the operations endpoints.
//
package iotsdk
