package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/wppdesk/internal/rpc"
	qrcode "github.com/skip2/go-qrcode"
)

var commandOrder = []string{
	"status", "health", "qr", "connect", "exit", "reset",
	"send", "send-audio", "send-sticker", "retry", "read", "avatar",
	"conversations", "messages", "workflow", "delete",
	"contacts", "stickers", "unread", "watch",
}

var commands = map[string]command{
	"status":        {usage: "", help: "Show session status", run: cmdStatus},
	"health":        {usage: "", help: "Show daemon health", run: cmdHealth},
	"qr":            {usage: "", help: "Print the pending pairing QR code", run: cmdQR},
	"connect":       {usage: "", help: "Connect the session", run: cmdConnect},
	"exit":          {usage: "", help: "Disconnect the session and stop reconnecting", run: cmdExit},
	"reset":         {usage: "[--no-reconnect]", help: "Wipe credentials and pair again", run: cmdReset},
	"send":          {usage: "<jid|number> <text>", help: "Send a text message", run: cmdSend},
	"send-audio":    {usage: "<jid|number> <file>", help: "Send a voice note", run: mediaSender("audio")},
	"send-sticker":  {usage: "<jid|number> <file>", help: "Send a sticker", run: mediaSender("sticker")},
	"retry":         {usage: "<jid|number> <id>", help: "Retransmit a pending message", run: cmdRetry},
	"read":          {usage: "<jid|number>", help: "Mark a conversation read", run: cmdRead},
	"avatar":        {usage: "<jid|number>", help: "Fetch a conversation's profile picture again", run: cmdAvatar},
	"conversations": {usage: "[limit] [offset]", help: "List conversations", run: cmdConversations},
	"messages":      {usage: "<jid|number> [limit]", help: "List recent messages", run: cmdMessages},
	"workflow":      {usage: "<jid|number> <status>", help: "Set a conversation's workflow status", run: cmdWorkflow},
	"delete":        {usage: "<jid|number>", help: "Delete a conversation", run: cmdDelete},
	"contacts":      {usage: "[list|add <name> <number>|rm <jid>|exists <jid|number>]", help: "Manage contacts", run: cmdContacts},
	"stickers":      {usage: "[list|save <file|ref>]", help: "Manage saved stickers", run: cmdStickers},
	"unread":        {usage: "", help: "Show the unread total", run: cmdUnread},
	"watch":         {usage: "[prefix]", help: "Stream daemon events", run: cmdWatch, stream: true},
}

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	dim    = color.New(color.Faint)
)

func cmdStatus(ctx context.Context, cl *cli, _ []string) error {
	resp, err := cl.c.Session.GetStatus(ctx)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	_, _ = cyan.Printf("Session:       ")
	fmt.Println(resp.Session)
	_, _ = cyan.Printf("Status:        ")
	statusColor(resp.Status).Println(resp.Status)
	if resp.PhoneNumber != "" {
		_, _ = cyan.Printf("Phone:         ")
		fmt.Println(resp.PhoneNumber)
	}
	_, _ = cyan.Printf("Credentials:   ")
	fmt.Println(yesNo(resp.HasCredentials))
	if resp.PairingPending {
		_, _ = yellow.Println("Pairing code pending; run `wppdeskctl qr` to scan it.")
	}
	if resp.Attempts > 0 {
		_, _ = cyan.Printf("Attempts:      ")
		fmt.Println(resp.Attempts)
	}
	_, _ = cyan.Printf("Conversations: ")
	fmt.Println(resp.ConversationCount)
	_, _ = cyan.Printf("Messages:      ")
	fmt.Println(resp.MessageCount)
	_, _ = cyan.Printf("Uptime:        ")
	fmt.Println(time.Duration(resp.UptimeMs) * time.Millisecond)
	return nil
}

func cmdHealth(ctx context.Context, cl *cli, _ []string) error {
	resp, err := cl.c.Session.Health(ctx)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	if resp.OK {
		_, _ = green.Println("OK")
	} else {
		color.Red("DEGRADED\n")
	}
	fmt.Printf("status=%s lanes=%d dropped_events=%d uptime=%s\n",
		resp.Status, resp.ActiveLanes, resp.DroppedEvents, time.Duration(resp.UptimeMs)*time.Millisecond)
	return nil
}

func cmdQR(ctx context.Context, cl *cli, _ []string) error {
	resp, err := cl.c.Session.GetPairing(ctx)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	qr, err := qrcode.New(resp.Token, qrcode.Low)
	if err != nil {
		return err
	}
	fmt.Print(qr.ToSmallString(false))
	_, _ = yellow.Println("Scan with WhatsApp > Linked devices > Link a device")
	return nil
}

func cmdConnect(ctx context.Context, cl *cli, _ []string) error {
	if err := cl.c.Session.Connect(ctx); err != nil {
		return err
	}
	return done(cl, "connecting")
}

func cmdExit(ctx context.Context, cl *cli, _ []string) error {
	if err := cl.c.Session.Disconnect(ctx); err != nil {
		return err
	}
	return done(cl, "disconnected")
}

func cmdReset(ctx context.Context, cl *cli, args []string) error {
	reconnect := true
	for _, a := range args {
		if a != "--no-reconnect" {
			return errUsage
		}
		reconnect = false
	}
	if err := cl.c.Session.Reset(ctx, reconnect); err != nil {
		return err
	}
	return done(cl, "session reset")
}

func cmdSend(ctx context.Context, cl *cli, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	resp, err := cl.c.Message.SendText(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	return printSent(cl, resp)
}

func mediaSender(kind string) func(context.Context, *cli, []string) error {
	return func(ctx context.Context, cl *cli, args []string) error {
		if len(args) != 2 {
			return errUsage
		}
		data, err := readInput(args[1])
		if err != nil {
			return err
		}
		resp, err := cl.c.Message.SendMedia(ctx, &rpc.SendMediaRequest{Peer: args[0], Kind: kind, Data: data})
		if err != nil {
			return err
		}
		return printSent(cl, resp)
	}
}

func cmdRetry(ctx context.Context, cl *cli, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	resp, err := cl.c.Message.Retry(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return printSent(cl, resp)
}

func cmdRead(ctx context.Context, cl *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	resp, err := cl.c.Conversation.MarkRead(ctx, args[0])
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	_, _ = green.Printf("marked %d message(s) read\n", resp.Marked)
	return nil
}

func cmdAvatar(ctx context.Context, cl *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	conv, err := cl.c.Conversation.RefreshAvatar(ctx, args[0])
	if err != nil {
		return err
	}
	if cl.emitJSON(conv) {
		return nil
	}
	if conv.AvatarURL == "" {
		_, _ = dim.Println("no profile picture")
		return nil
	}
	fmt.Println(conv.AvatarURL)
	return nil
}

func cmdConversations(ctx context.Context, cl *cli, args []string) error {
	limit, offset := 0, 0
	if len(args) > 0 {
		limit, _ = strconv.Atoi(args[0])
	}
	if len(args) > 1 {
		offset, _ = strconv.Atoi(args[1])
	}
	resp, err := cl.c.Conversation.List(ctx, limit, offset)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	if len(resp.Conversations) == 0 {
		fmt.Println("No conversations.")
		return nil
	}
	for _, conv := range resp.Conversations {
		unread := "  "
		if conv.Unread > 0 {
			unread = yellow.Sprintf("%2d", conv.Unread)
		}
		fmt.Printf("%s %-32s %-24s %-10s %s\n",
			unread, cyan.Sprint(conv.JID), truncate(conv.Name, 24), conv.WorkflowStatus, dim.Sprint(truncate(conv.Preview, 40)))
	}
	dim.Printf("%d of %d\n", len(resp.Conversations), resp.Total)
	return nil
}

func cmdMessages(ctx context.Context, cl *cli, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	req := &rpc.ListMessagesRequest{Peer: args[0]}
	if len(args) > 1 {
		req.Limit, _ = strconv.Atoi(args[1])
	}
	resp, err := cl.c.Conversation.ListMessages(ctx, req)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	for _, m := range resp.Messages {
		ts := time.UnixMilli(m.TimestampMs).Format("02/01 15:04")
		who := m.SenderName
		if m.FromMe {
			who = "Você"
		}
		body := m.Text
		if m.Ref != "" {
			body = strings.TrimSpace(body + " " + m.Ref)
		}
		fmt.Printf("%s %s %s %s\n", dim.Sprint(ts), cyan.Sprint(who), body, statusGlyph(m))
	}
	if resp.HasMore {
		dim.Println("(older messages available)")
	}
	return nil
}

func cmdWorkflow(ctx context.Context, cl *cli, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if err := cl.c.Conversation.SetWorkflowStatus(ctx, args[0], args[1]); err != nil {
		return err
	}
	return done(cl, "workflow status set to "+args[1])
}

func cmdDelete(ctx context.Context, cl *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := cl.c.Conversation.Delete(ctx, args[0]); err != nil {
		return err
	}
	return done(cl, "conversation deleted")
}

func cmdContacts(ctx context.Context, cl *cli, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list":
		resp, err := cl.c.Contact.List(ctx)
		if err != nil {
			return err
		}
		if cl.emitJSON(resp) {
			return nil
		}
		if len(resp.Contacts) == 0 {
			fmt.Println("No contacts.")
		}
		for _, ct := range resp.Contacts {
			fmt.Printf("%-24s %-16s %s\n", ct.Name, ct.Number, dim.Sprint(ct.JID))
		}
		return nil
	case "add":
		if len(args) < 2 {
			return errUsage
		}
		name := strings.Join(args[:len(args)-1], " ")
		resp, err := cl.c.Contact.Add(ctx, &rpc.AddContactRequest{Name: name, Number: args[len(args)-1]})
		if err != nil {
			return err
		}
		if cl.emitJSON(resp) {
			return nil
		}
		_, _ = green.Printf("added %s (%s)\n", resp.Name, resp.JID)
		return nil
	case "rm":
		if len(args) != 1 {
			return errUsage
		}
		if err := cl.c.Contact.Delete(ctx, args[0]); err != nil {
			return err
		}
		return done(cl, "contact removed")
	case "exists":
		if len(args) != 1 {
			return errUsage
		}
		req := &rpc.ContactExistsRequest{Number: args[0]}
		if strings.Contains(args[0], "@") {
			req = &rpc.ContactExistsRequest{JID: args[0]}
		}
		ok, err := cl.c.Contact.Exists(ctx, req)
		if err != nil {
			return err
		}
		if cl.emitJSON(rpc.ContactExists{Exists: ok}) {
			return nil
		}
		fmt.Println(yesNo(ok))
		return nil
	}
	return errUsage
}

func cmdStickers(ctx context.Context, cl *cli, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		resp, err := cl.c.Sticker.List(ctx)
		if err != nil {
			return err
		}
		if cl.emitJSON(resp) {
			return nil
		}
		for _, s := range resp.Stickers {
			fmt.Printf("%s %s\n", dim.Sprint(time.UnixMilli(s.SavedAtMs).Format("2006-01-02 15:04")), s.Ref)
		}
		return nil
	}
	if args[0] != "save" || len(args) != 2 {
		return errUsage
	}
	req := &rpc.SaveStickerRequest{}
	if strings.HasPrefix(args[1], "/stickers/") {
		req.FromRef = args[1]
	} else {
		data, err := readInput(args[1])
		if err != nil {
			return err
		}
		req.Data = data
	}
	resp, err := cl.c.Sticker.Save(ctx, req)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	_, _ = green.Printf("saved %s\n", resp.Ref)
	return nil
}

func cmdUnread(ctx context.Context, cl *cli, _ []string) error {
	resp, err := cl.c.Conversation.UnreadTotal(ctx)
	if err != nil {
		return err
	}
	if cl.emitJSON(resp) {
		return nil
	}
	fmt.Println(resp.Count)
	return nil
}

func cmdWatch(ctx context.Context, cl *cli, args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	stream, err := cl.c.Event.Watch(ctx, prefix)
	if err != nil {
		return err
	}
	for {
		evt, err := stream.Recv()
		if err == io.EOF || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if cl.emitJSON(evt) {
			continue
		}
		fmt.Printf("%s %s %s\n",
			dim.Sprint(time.UnixMilli(evt.TimestampMs).Format("15:04:05.000")),
			cyan.Sprint(evt.Kind),
			string(evt.Payload))
	}
}

func printSent(cl *cli, resp *rpc.SendResponse) error {
	if cl.emitJSON(resp) {
		return nil
	}
	_, _ = green.Printf("sent %s ", resp.Message.ID)
	fmt.Println(statusGlyph(resp.Message))
	return nil
}

func done(cl *cli, msg string) error {
	if cl.emitJSON(map[string]string{"result": msg}) {
		return nil
	}
	_, _ = green.Println(msg)
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func statusColor(s string) *color.Color {
	switch s {
	case "connected":
		return green
	case "disconnected":
		return color.New(color.FgRed)
	default:
		return yellow
	}
}

func statusGlyph(m rpc.Message) string {
	if !m.FromMe {
		return ""
	}
	switch m.Status {
	case "pending":
		return dim.Sprint("◷")
	case "sent":
		return dim.Sprint("✓")
	case "delivered":
		return dim.Sprint("✓✓")
	case "read":
		return cyan.Sprint("✓✓")
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
