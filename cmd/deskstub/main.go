package main

import (
	"log"

	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/stub"
)

func main() {
	cfg := common.LoadConfig()
	h := stub.BuildServer(cfg)
	log.Printf("deskstub listening on %s", cfg.HTTPAddr)
	h.Spin()
}
