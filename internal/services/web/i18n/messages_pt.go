package i18n

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	// Layout
	message.SetString(lang, "app.name", "Postbook")
	message.SetString(lang, "nav.home", "Início")
	message.SetString(lang, "nav.server", "Servidor")
	message.SetString(lang, "nav.local", "Local")
	message.SetString(lang, "nav.client", "Cliente")

	// Home
	message.SetString(lang, "home.heading", "Postbook")
	message.SetString(lang, "home.server", "Publicações lidas do banco do servidor.")
	message.SetString(lang, "home.local", "Publicações lidas do banco local.")
	message.SetString(lang, "home.client", "Publicações do banco local servidas como JSON.")

	// Posts
	message.SetString(lang, "posts.title.server", "Publicações (Servidor)")
	message.SetString(lang, "posts.title.local", "Publicações (Local)")
	message.SetString(lang, "posts.title.client", "Publicações (Cliente)")
	message.SetString(lang, "posts.empty", "Nenhuma publicação ainda")
	message.SetString(lang, "posts.published_on", "Publicado em: %s")
	_ = message.Set(lang, "posts.comment_count", plural.Selectf(1, "%d",
		plural.One, "%d comentário",
		plural.Other, "%d comentários",
	))
	message.SetString(lang, "posts.new", "Nova publicação")
	message.SetString(lang, "posts.form.title", "Título")
	message.SetString(lang, "posts.form.content", "Conteúdo")
	message.SetString(lang, "posts.form.submit", "Publicar")

	// Post detail
	message.SetString(lang, "post.not_found", "Publicação não encontrada")
	message.SetString(lang, "post.comments", "Comentários")
	message.SetString(lang, "post.no_comments", "Nenhum comentário")
	message.SetString(lang, "post.back", "Voltar para publicações")
	message.SetString(lang, "post.comment.form.content", "Comentário")
	message.SetString(lang, "post.comment.form.submit", "Comentar")

	// Errors
	message.SetString(lang, "error.title_required", "O título é obrigatório")
	message.SetString(lang, "error.content_required", "O conteúdo é obrigatório")
	message.SetString(lang, "error.post_not_found", "Publicação não encontrada")
	message.SetString(lang, "error.invalid_request", "Requisição inválida")
	message.SetString(lang, "error.storage_unavailable", "Não foi possível salvar as alterações")
	message.SetString(lang, "error.server", "Algo deu errado")
	message.SetString(lang, "error.page_not_found", "Página não encontrada")
}
