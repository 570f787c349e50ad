package api

// @title reqkit API
// @version v1.0.0
// @description API for the reqkit request batch tester.

// @host localhost:8690
// @BasePath /api
// @schemes http
