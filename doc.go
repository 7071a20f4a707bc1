// Package gatt implements the attribute server side of the Bluetooth Low
// Energy Generic Attribute Profile: an attribute table built from an XML
// service definition, and the ATT operations that discover, read, write
// and subscribe to it.
//
// # STATUS
//
// The engine serves discovery, reads, writes, write commands and client
// configuration. Long reads, prepared writes, signed writes and multiple
// reads are answered with "request not supported". There is no radio
// support in this package; a Conn talks a line protocol to a bridge
// process that owns the link (see Shim).
//
// # USAGE
//
// Build a table, wrap it in a server, and hand requests to it:
//
//	st, err := gatt.Build(f, gatt.BuildBase(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := gatt.NewServer(st, gatt.NotifyInterval(time.Minute))
//	rsp := srv.Handle(gatt.Read{Handle: 3, Session: "c1"})
//
// To serve real clients, connect the server to a link:
//
//	conn := gatt.NewConn(srv, link, gatt.MaxMTU)
//	srv.Option(gatt.Deliver(conn))
//	log.Fatal(conn.Serve(ctx))
//
// Values written by clients live in the table. Pass a ValueStore (see
// package valuestore) with the Values option to persist them; reads then
// refresh the value from the store before answering.
//
// # SUBSCRIPTIONS
//
// A client subscribes by writing 0x0001 (notify) or 0x0002 (indicate)
// to a Client Characteristic Configuration descriptor. Subscriptions are
// per session and are dropped by Server.Disconnect. While any exist,
// every subscribed session receives the characteristic value, followed
// by a six-byte day, month, year, hour, minute, second stamp, once per
// notify interval. A new subscriber receives one delivery right away.
//
// The gattd command in cmd/gattd wires all of this to a YAML
// configuration file.
package gatt
