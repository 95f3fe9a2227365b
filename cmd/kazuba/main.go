// Package main is the entry point for the Kazuba conversion gateway.
package main

import httpadapter "github.com/gabrielgadea/kazuba-saas-api/adapters/http"

func main() {
	httpadapter.Version = version
	Execute()
}
