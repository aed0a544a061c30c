/*
Package ws streams node lifecycle events to WebSocket clients.

The Hub is installed as the node observer. Every spawned, registered,
killed, crashed or stopped component is broadcast as one JSON text frame:

	{"type":"event","event":{"kind":"spawned","node":"node","label":"csv","type":"source","time":"..."}}

Clients may send {"type":"ping"} and receive {"type":"pong"}. A client
that cannot keep up is disconnected rather than slowing the node.
*/
package ws
