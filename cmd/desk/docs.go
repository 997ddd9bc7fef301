package main

//go:generate swag init -g cmd/desk/main.go -o docs

// @title           PredDesk API
// @version         0.1.0
// @description     Probability consensus and trade gating for binary prediction markets.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
