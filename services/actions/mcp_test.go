package actions_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
	. "github.com/coachworks/agentchat/services/actions"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// newLookupServer serves one lookup_client tool and records what it was
// called with.
func newLookupServer(gotArgs *map[string]string, gotMeta *mcp.Meta) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "test"}, nil)
	server.AddTool(&mcp.Tool{
		Name:        "lookup_client",
		Description: "Look up a client record",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"client": map[string]any{"type": "string", "description": "client name"},
			},
			"required": []any{"client"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		*gotArgs = map[string]string{}
		if err := json.Unmarshal(req.Params.Arguments, gotArgs); err != nil {
			return nil, err
		}
		*gotMeta = req.Params.Meta
		if (*gotArgs)["client"] == "unknown" {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "no such client"}},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: 3 sessions left", (*gotArgs)["client"])}},
		}, nil
	})
	return server
}

var _ = Describe("MCP tools", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		session *mcp.ClientSession
		gotArgs map[string]string
		gotMeta mcp.Meta
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())

		server := newLookupServer(&gotArgs, &gotMeta)

		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		serverSession, err := server.Connect(ctx, serverTransport, nil)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { _ = serverSession.Close() })

		client := mcp.NewClient(&mcp.Implementation{Name: "agentchat-test", Version: "test"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = session.Close()
		cancel()
	})

	It("exposes remote tools with their schema", func() {
		tools, err := MCPTools(ctx, session)
		Expect(err).ToNot(HaveOccurred())
		Expect(tools).To(HaveLen(1))

		def := tools[0].Definition()
		Expect(def.Name.String()).To(Equal("lookup_client"))
		Expect(def.Required).To(Equal([]string{"client"}))
		Expect(def.InputNames()).To(Equal([]string{"client"}))
		Expect(tools[0].PreviewRequired()).To(BeTrue())
	})

	It("calls the remote tool with the caller in the metadata only", func() {
		tools, err := MCPTools(ctx, session)
		Expect(err).ToNot(HaveOccurred())
		registry, err := action.NewRegistry(tools...)
		Expect(err).ToNot(HaveOccurred())

		res := registry.Execute(ctx, "lookup_client", map[string]string{"client": "Dana"}, "op-1")
		Expect(res).To(Equal("Dana: 3 sessions left"))
		Expect(gotArgs).To(Equal(map[string]string{"client": "Dana"}))
		Expect(gotMeta).To(HaveKeyWithValue("caller", "op-1"))
	})

	It("reports remote errors in the result", func() {
		tools, err := MCPTools(ctx, session)
		Expect(err).ToNot(HaveOccurred())
		var tool types.Tool = tools[0]
		res := tool.Execute(ctx, map[string]string{"client": "unknown"})
		Expect(res).To(Equal(`Tool "lookup_client" reported an error: no such client`))
	})
})

var _ = Describe("ConnectMCP", func() {
	var (
		url     string
		gotArgs map[string]string
		gotMeta mcp.Meta
	)

	BeforeEach(func() {
		server := newLookupServer(&gotArgs, &gotMeta)
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			handler.ServeHTTP(w, r)
		}))
		DeferCleanup(srv.Close)
		url = srv.URL
	})

	It("talks to a server over streamable HTTP with the bearer token", func() {
		session, err := ConnectMCP(context.Background(), url, "s3cret")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { _ = session.Close() })

		tools, err := MCPTools(context.Background(), session)
		Expect(err).ToNot(HaveOccurred())
		Expect(tools).To(HaveLen(1))
		Expect(tools[0].Execute(context.Background(), map[string]string{"client": "Noor"})).To(Equal("Noor: 3 sessions left"))
	})

	It("fails without the right token", func() {
		_, err := ConnectMCP(context.Background(), url, "wrong")
		Expect(err).To(HaveOccurred())
	})
})
