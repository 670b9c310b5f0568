package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
)

// 本地开发用：签发一个测试 JWT。
// 生产环境的 token 由外部身份服务签发，这里只是绕开它调试接口。
func main() {
	userID := flag.Int64("user", 1, "user id")
	username := flag.String("name", "dev", "username")
	role := flag.String("role", auth.RoleCustomer, "customer | staff | admin")
	flag.Parse()

	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	token, err := auth.GenerateToken(&cfg.JWT, *userID, *username, *role)
	if err != nil {
		log.Fatalf("generate token failed: %v", err)
	}
	fmt.Println(token)
}
