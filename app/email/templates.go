package email

import "html/template"

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
{{template "body" .}}
<p>Atenciosamente,<br>Equipe ResumoTube</p>
</div>`

var templates = map[Kind]*template.Template{
	KindWelcome: parse(`{{define "body"}}<h1 style="color: #4F46E5;">Bem-vindo ao ResumoTube!</h1>
<p>Olá {{.Name}},</p>
<p>Obrigado por se juntar ao ResumoTube! Estamos muito felizes em ter você conosco.</p>
<p>Com o ResumoTube, você pode:</p>
<ul>
<li>Receber resumos automáticos dos seus canais favoritos do YouTube</li>
<li>Pesquisar em todo o conteúdo dos seus canais</li>
<li>Manter um histórico organizado dos seus resumos</li>
</ul>
<p>Se você tiver alguma dúvida, não hesite em nos contatar.</p>{{end}}`),

	KindPaymentSuccess: parse(`{{define "body"}}<h1 style="color: #4F46E5;">Pagamento Confirmado!</h1>
<p>Olá {{.Name}},</p>
<p>Seu pagamento para o plano {{.PlanName}}{{if .Amount}} no valor de R$ {{printf "%.2f" .Amount}}{{end}} foi confirmado com sucesso!</p>
<p>Agora você tem acesso completo a todas as funcionalidades do ResumoTube.</p>
<p>Se você tiver alguma dúvida, não hesite em nos contatar.</p>{{end}}`),

	KindPaymentFailed: parse(`{{define "body"}}<h1 style="color: #EF4444;">Falha no Pagamento</h1>
<p>Olá {{.Name}},</p>
<p>Infelizmente, houve um problema com seu pagamento.</p>
<p>Por favor, tente novamente ou entre em contato com nosso suporte se o problema persistir.</p>{{end}}`),

	KindPasswordReset: parse(`{{define "body"}}<h1 style="color: #4F46E5;">Redefinição de Senha</h1>
<p>Você solicitou a redefinição de sua senha.</p>
<p>Clique no link abaixo para criar uma nova senha:</p>
<p><a href="{{.ResetURL}}" style="display: inline-block; background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Redefinir Senha</a></p>
<p>Este link expirará em 1 hora.</p>
<p>Se você não solicitou esta redefinição, por favor ignore este email.</p>{{end}}`),

	KindSubscriptionCancelled: parse(`{{define "body"}}<h1 style="color: #4F46E5;">Assinatura Cancelada</h1>
<p>Olá {{.Name}},</p>
<p>Sua assinatura do ResumoTube foi cancelada.</p>
{{if not .PeriodEnd.IsZero}}<p>Você continuará com acesso até {{.PeriodEnd.Format "02/01/2006"}}.</p>{{end}}
<p>Sentiremos sua falta! Você pode assinar novamente a qualquer momento.</p>{{end}}`),
}

var subjects = map[Kind]string{
	KindWelcome:               "Bem-vindo ao ResumoTube!",
	KindPaymentSuccess:        "Pagamento Confirmado - ResumoTube",
	KindPaymentFailed:         "Falha no Pagamento - ResumoTube",
	KindPasswordReset:         "Redefinição de Senha - ResumoTube",
	KindSubscriptionCancelled: "Assinatura Cancelada - ResumoTube",
}

func parse(body string) *template.Template {
	return template.Must(template.Must(template.New("layout").Parse(layout)).Parse(body))
}
