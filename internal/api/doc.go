// Package api exposes the HTTP surface of colourstream: admin sessions,
// room management, upload ingress and queries, and control proxies for OBS
// Studio and OvenMediaEngine.
//
// The server is a thin layer over http.ServeMux; handlers validate input,
// call the owning service, and serialize a JSON response. Admin routes
// require a bearer JWT issued by the auth service.
package api
