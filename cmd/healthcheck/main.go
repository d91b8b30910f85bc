// Команда healthcheck опрашивает gRPC сервис здоровья API и завершается
// с кодом 1, если сервис не в состоянии SERVING. Используется в HEALTHCHECK контейнера.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/magabrotheeeer/account-service/internal/grpc/client"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "адрес gRPC сервиса здоровья")
	timeout := flag.Duration("timeout", 3*time.Second, "таймаут проверки")
	flag.Parse()

	c, err := client.NewHealthClient(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ok, err := c.Serving(ctx, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "service is not serving")
		os.Exit(1)
	}
	fmt.Println("SERVING")
}
