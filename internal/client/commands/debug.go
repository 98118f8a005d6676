package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"repe/internal/client/display"

	"golang.org/x/term"
)

func (r *Registry) registerDebugCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Group:       groupUtility,
		Description: "Check server health",
		Usage:       "health",
		Handler:     healthHandler,
	})

	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Group:       groupUtility,
		Description: "Show or set API base URL",
		Usage:       "url [apiUrl]",
		Handler:     urlHandler,
	})

	r.Register(&Command{
		Name:        "raw",
		ShortName:   ":",
		Group:       groupUtility,
		Description: "Send raw API request",
		Usage:       "raw <method> <path> [json-body]",
		Handler:     rawRequestHandler,
	})

	r.Register(&Command{
		Name:        "token",
		Group:       groupUtility,
		Description: "Set the bearer token, prompting when omitted",
		Usage:       "token [jwt]",
		Handler:     tokenHandler,
	})

	r.Register(&Command{
		Name:        "clear",
		ShortName:   "-",
		Group:       groupUtility,
		Description: "Clear screen",
		Usage:       "clear",
		Handler:     clearHandler,
	})
}

func healthHandler(s Session, args []string) error {
	resp, err := s.GetClient().Health(s.Context())
	if err != nil {
		return err
	}

	out := s.Out()
	status := display.Green("%s", resp.Status)
	if resp.Status != "healthy" {
		status = display.Red("%s", resp.Status)
	}
	fmt.Fprintln(out, display.Cyan("Server Health:"))
	fmt.Fprintf(out, "  Status:  %s\n", status)
	fmt.Fprintf(out, "  Time:    %s\n", time.Unix(resp.Time, 0).Format("2006-01-02 15:04:05"))
	if resp.Storage != "" {
		fmt.Fprintf(out, "  Storage: %s\n", resp.Storage)
	}
	return nil
}

func urlHandler(s Session, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(s.Out(), "Current API URL: %s\n", s.GetAPIBaseURL())
		return nil
	}

	url := args[0]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/")

	s.SetAPIBaseURL(url)
	fmt.Fprintln(s.Out(), display.Cyan("API URL set to: %s", url))
	return nil
}

func rawRequestHandler(s Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <method> <path> [json-body]")
	}

	method := strings.ToUpper(args[0])
	path := args[1]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	body := strings.Join(args[2:], " ")

	data, err := s.GetClient().RawRequest(s.Context(), method, path, body)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		display.PrettyPrintJSON(s.Out(), data)
	} else {
		fmt.Fprintln(s.Out(), display.Green("OK"))
	}
	return nil
}

func tokenHandler(s Session, args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	} else {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return fmt.Errorf("usage: token <jwt>")
		}
		fmt.Fprint(s.Out(), "Token: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(s.Out())
		if err != nil {
			return err
		}
		token = strings.TrimSpace(string(b))
	}

	s.GetClient().SetToken(token)
	if token == "" {
		fmt.Fprintln(s.Out(), display.Cyan("Token cleared"))
	} else {
		fmt.Fprintln(s.Out(), display.Green("Token set"))
	}
	return nil
}

func clearHandler(s Session, args []string) error {
	cmd := exec.Command("clear")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}
