package services

import (
	"bytes"
	"fmt"
	"html/template"
)

const mailLayout = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
{{template "content" .}}
<p style="color: #888; font-size: 12px;">{{.AppName}}</p>
</body>
</html>{{end}}`

var mailContents = map[string]string{
	"account_created": `{{define "content"}}<h2>Welcome to {{.AppName}}</h2>
<p>Hi {{.Username}},</p>
<p>Your account has been created. Your desktop comes with {{.LimitGB}} GB of storage.</p>{{end}}`,

	"account_updated": `{{define "content"}}<h2>Your account was updated</h2>
<p>Hi {{.Username}},</p>
<p>The following settings were changed: {{range $i, $c := .Changes}}{{if $i}}, {{end}}{{$c}}{{end}}.</p>
<p>If you did not make this change, reset your password right away.</p>{{end}}`,

	"account_deleted": `{{define "content"}}<h2>Your account was deleted</h2>
<p>Hi {{.Username}},</p>
<p>Your account and all of your files have been removed. We are sorry to see you go.</p>{{end}}`,

	"password_reset": `{{define "content"}}<h2>Reset your password</h2>
<p>Hi {{.Username}},</p>
<p>Follow <a href="{{.ResetURL}}">this link</a> to choose a new password. The link expires in {{.ExpiresIn}}.</p>
<p>If you did not ask for a reset you can ignore this email.</p>{{end}}`,

	"storage_alert": `{{define "content"}}<h2>Storage {{.Level}}: {{.Percentage}}% used</h2>
<p>Hi {{.Username}},</p>
<p>You are using {{printf "%.2f" .UsedGB}} GB of your {{printf "%.2f" .LimitGB}} GB.</p>
{{if ge .Percentage 100}}<p>Your storage is full. Empty the recycle bin or delete files to keep uploading.</p>
{{else}}<p>Consider emptying the recycle bin or removing files you no longer need.</p>{{end}}{{end}}`,

	"broadcast": `{{define "content"}}<h2>{{.Subject}}</h2>
<div>{{.Body}}</div>{{end}}`,

	"newsletter": `{{define "content"}}<h2>{{.Title}}</h2>
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="" style="max-width: 100%;">{{end}}
<div>{{.Body}}</div>
<p style="font-size: 12px;">You receive this newsletter because you opted in from your account settings.</p>{{end}}`,

	"support_request": `{{define "content"}}<h2>Support request: {{.Subject}}</h2>
<p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
<p><strong>Type:</strong> {{.Type}}</p>
<div>{{.Message}}</div>{{end}}`,
}

var mailTemplates = parseMailTemplates()

func parseMailTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template, len(mailContents))
	for name, content := range mailContents {
		t := template.Must(template.New(name).Parse(mailLayout))
		templates[name] = template.Must(t.Parse(content))
	}
	return templates
}

func renderMail(name string, data interface{}) (string, error) {
	t, ok := mailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
