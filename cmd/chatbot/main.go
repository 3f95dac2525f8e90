package main

import (
	"github.com/zhouzirui/gemini-chat/internal/app"
	"github.com/zhouzirui/gemini-chat/internal/handler/page"
)

func main() {
	app.Execute(page.Chatbot)
}
