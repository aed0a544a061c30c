/*
Package http serves the node control API.

Commands are posted as the same word lists the command dispatcher
understands; results come back as JSON. Routes:

	GET    /health
	GET    /commands
	POST   /invoke               {"command": "spawn source csv", "arguments": [], "options": {}}
	GET    /status?format=yaml
	GET    /components
	DELETE /components/:label
	POST   /components/:label/send  {"message": "flush"}

Errors carry the dispatcher error code and map onto HTTP statuses:
syntax errors are 400, unknown labels 404, duplicate labels 409, invalid
components 422 and request timeouts 504.
*/
package http
