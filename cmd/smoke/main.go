package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-agent-be/internal/config"
	"ai-agent-be/internal/dto"
	"ai-agent-be/pkg/auth"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
)

// Walks every endpoint of a running server with a freshly minted token.
func main() {
	baseURL := flag.String("url", "http://localhost:8090/api/v1/agent", "API base URL")
	subject := flag.String("subject", "smoke-user", "subject id to act as")
	tag := flag.String("tag", "smoke", "context tag to upload into")
	model := flag.String("model", "", "model name (empty uses the default)")
	flag.Parse()

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		color.Red("JWT_SECRET is not set")
		os.Exit(1)
	}
	token, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret).Sign(*subject, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		color.Red("Failed to sign token: %v", err)
		os.Exit(1)
	}
	adminToken, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret).Sign("smoke-admin", jwt.MapClaims{
		"exp":  time.Now().Add(time.Hour).Unix(),
		"role": auth.RoleAdmin,
	})
	if err != nil {
		color.Red("Failed to sign admin token: %v", err)
		os.Exit(1)
	}
	c := &client{baseURL: *baseURL, token: token, http: &http.Client{}}
	admin := &client{baseURL: *baseURL, token: adminToken, http: c.http}

	color.Cyan("🚀 Starting chat gateway smoke test\n")

	color.Yellow("\n1. Account quota")
	c.printJSON(c.do(http.MethodGet, "/account/quota", "", nil))

	color.Yellow("\n1b. Admin grants 5 more requests")
	admin.printJSON(admin.do(http.MethodPost, "/admin/account/"+*subject+"/quota", "application/json", strings.NewReader(`{"amount":5}`)))

	color.Yellow("\n2. Upload context into %q", *tag)
	body, contentType := uploadBody(*tag, "smoke.md", "The smoke test fox is orange and lives in the test lab.")
	c.printJSON(c.do(http.MethodPost, "/rag/file/upload", contentType, body))

	color.Yellow("\n3. Context tags")
	c.printJSON(c.do(http.MethodGet, "/rag/tags", "", nil))

	chat, _ := json.Marshal(dto.ChatRequestDTO{
		Model:      *model,
		ContextTag: *tag,
		Messages:   []dto.MessageDTO{{Role: "user", Content: "What colour is the smoke test fox?"}},
	})

	color.Yellow("\n4. Streamed answer")
	c.stream("/ai/generate_stream_rag", chat)

	color.Yellow("\n5. Streamed title")
	c.stream("/ai/generate_title", chat)

	color.Yellow("\n6. Invalid token is reported in-band")
	bad := &client{baseURL: c.baseURL, token: "not-a-token", http: c.http}
	bad.stream("/ai/generate_stream_rag", chat)

	color.Yellow("\n7. Delete context %q", *tag)
	c.printJSON(c.do(http.MethodDelete, "/rag/context/"+*tag, "", nil))

	color.Green("\n✅ Smoke test finished")
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) do(method, path, contentType string, body io.Reader) (*http.Response, []byte, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp, raw, err
}

func (c *client) printJSON(resp *http.Response, raw []byte, err error) {
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	if resp.StatusCode >= 300 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(pretty.String())
}

// stream prints each SSE item on its own line as it arrives.
func (c *client) stream(path string, payload []byte) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	defer resp.Body.Close()

	items := 0
	var item []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			item = append(item, data)
			continue
		}
		if line == "" && item != nil {
			items++
			fmt.Printf("  [%d] %s\n", items, strings.Join(item, "\n"))
			item = nil
		}
	}
	if err := scanner.Err(); err != nil {
		color.Red("Stream broke: %v", err)
	}
	color.Green("Items: %d", items)
}

func uploadBody(tag, filename, content string) (io.Reader, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("ragTag", tag)
	part, _ := w.CreateFormFile("file", filename)
	_, _ = part.Write([]byte(content))
	_ = w.Close()
	return &buf, w.FormDataContentType()
}
