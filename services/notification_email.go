package services

import (
	"fmt"
	"html/template"
	"strings"
)

func buildFormalEmailHTML(subject, recipientName, message, link string) string {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "Colleague"
	}

	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Dear %s,", name))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	linkBlock := ""
	if link != "" {
		escapedLink := template.HTMLEscapeString(link)
		linkBlock = fmt.Sprintf(`<p style="margin:20px 0 0 0;font-size:15px;"><a href="%s" style="color:#2563eb;">View manuscript</a></p>`, escapedLink)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
    %s
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage, linkBlock)
}
