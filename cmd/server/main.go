// Notes API server.
//
// Serves a JSON CRUD API for notes backed by PostgreSQL. Run `server serve`
// (the default) to start listening or `server migrate` to only create the
// schema.
package main

func main() {
	Execute()
}
