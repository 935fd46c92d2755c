package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"txtforge/internal/config"
	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/pkg/logger"

	"gopkg.in/telebot.v4"
)

const (
	listSize     = 5
	unknownCount = "н/д"
)

var ErrRateLimited = errors.New("telegram rate limited")

type JokeStore interface {
	Random(ctx context.Context, f database.RandomFilter) ([]models.Joke, error)
	Top(ctx context.Context, order database.TopOrder, limit int) ([]models.Joke, error)
	CountPublished(ctx context.Context) (int, error)
	CountGenerated(ctx context.Context) (int, error)
}

type SectionStore interface {
	List(ctx context.Context) ([]models.Section, error)
	GetBySlug(ctx context.Context, slug string) (*models.Section, error)
}

// Sender is the part of *telebot.Bot used for outgoing messages.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Bot struct {
	cfg        config.BotConfig
	settings   telebot.Settings
	jokes      JokeStore
	sections   SectionStore
	tbot       *telebot.Bot
	sender     Sender
	retryDelay time.Duration
}

func New(cfg config.BotConfig, jokes JokeStore, sections SectionStore) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	return &Bot{
		cfg:        cfg,
		jokes:      jokes,
		sections:   sections,
		retryDelay: time.Second,
		settings: telebot.Settings{
			Token:  cfg.Token,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		},
	}, nil
}

// Start connects to Telegram and polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	tbot, err := telebot.NewBot(b.settings)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	b.tbot = tbot
	b.sender = tbot
	b.setupHandlers(tbot)

	go tbot.Start()
	go func() {
		<-ctx.Done()
		tbot.Stop()
		logger.Info("Telegram bot stopped")
	}()

	logger.Info("Telegram bot started", logger.String("username", tbot.Me.Username))
	return nil
}

func (b *Bot) setupHandlers(bot *telebot.Bot) {
	bot.Handle(telebot.OnText, func(c telebot.Context) error {
		logger.Debug("Incoming text message",
			logger.Int64("user_id", c.Sender().ID),
			logger.String("username", c.Sender().Username),
		)
		return b.reply(c, "Используйте /joke, чтобы получить анекдот. Список команд: /help")
	})

	bot.Handle("/start", func(c telebot.Context) error {
		logger.Info("New bot user",
			logger.Int64("user_id", c.Sender().ID),
			logger.String("username", c.Sender().Username),
		)
		return b.reply(c, welcomeText)
	})
	bot.Handle("/help", func(c telebot.Context) error {
		return b.reply(c, helpText)
	})
	bot.Handle("/joke", func(c telebot.Context) error {
		return b.reply(c, b.jokeReply(context.Background(), c.Args()))
	})
	bot.Handle("/top", func(c telebot.Context) error {
		return b.reply(c, b.topReply(context.Background(), c.Args()))
	})
	bot.Handle("/latest", func(c telebot.Context) error {
		return b.reply(c, b.listReply(context.Background(), database.Latest, "Свежие анекдоты"))
	})
	bot.Handle("/sections", func(c telebot.Context) error {
		return b.reply(c, b.sectionsReply(context.Background()))
	})
	bot.Handle("/stats", func(c telebot.Context) error {
		return b.reply(c, b.statsReply(context.Background()))
	})
}

func (b *Bot) reply(c telebot.Context, text string) error {
	return c.Send(text, &telebot.SendOptions{
		ParseMode:             telebot.ModeHTML,
		DisableWebPagePreview: true,
	})
}

// AnnounceJoke posts a freshly generated joke to the configured channel.
// Without a channel it does nothing.
func (b *Bot) AnnounceJoke(ctx context.Context, joke *models.Joke) error {
	if b.cfg.ChannelID == 0 || b.sender == nil {
		return nil
	}
	return b.sendMessageWithRetry(ctx, b.cfg.ChannelID, formatJoke(joke))
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Too Many Requests") || strings.Contains(msg, "retry after")
}

func (b *Bot) sendMessageWithRetry(ctx context.Context, chatID int64, text string) error {
	maxRetries := 3
	retryDelay := b.retryDelay

	for i := 0; i < maxRetries; i++ {
		_, err := b.sender.Send(&telebot.Chat{ID: chatID}, text, &telebot.SendOptions{
			ParseMode: telebot.ModeHTML,
		})
		if err == nil {
			return nil
		}
		if !isRateLimited(err) {
			return fmt.Errorf("failed to send message: %w", err)
		}

		logger.Warn("Rate limited, retrying...",
			logger.Int("retry", i+1),
			logger.Int("max_retries", maxRetries),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
	}

	return ErrRateLimited
}

const welcomeText = "<b>Добро пожаловать в TxtForge!</b>\n\n" +
	"Я присылаю анекдоты с сайта: и написанные людьми, и сгенерированные.\n\n" + commandList

const helpText = "<b>Помощь</b>\n\n" + commandList

const commandList = "Команды:\n" +
	"- /joke - случайный анекдот\n" +
	"- /joke &lt;раздел&gt; - случайный анекдот из раздела\n" +
	"- /top [likes|views|dislikes] - лучшие анекдоты\n" +
	"- /latest - свежие анекдоты\n" +
	"- /sections - список разделов\n" +
	"- /stats - статистика\n" +
	"- /help - эта справка"

func formatJoke(j *models.Joke) string {
	return fmt.Sprintf("<b>Анекдот #%d</b>\n\n%s\n\n👍 %d  👎 %d  👁 %d",
		j.ID, html.EscapeString(j.Text), j.Likes, j.Dislikes, j.Views)
}

func (b *Bot) jokeReply(ctx context.Context, args []string) string {
	filter := database.RandomFilter{Limit: 1}

	if len(args) > 0 {
		slug := strings.ToLower(args[0])
		section, err := b.sections.GetBySlug(ctx, slug)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Sprintf("Раздел %q не найден. Список разделов: /sections", html.EscapeString(slug))
		}
		if err != nil {
			logger.Error("Failed to load section", logger.String("slug", slug), logger.Err(err))
			return "Не удалось получить анекдот, попробуйте позже."
		}
		filter.SectionID = section.ID
	}

	jokes, err := b.jokes.Random(ctx, filter)
	if err != nil {
		logger.Error("Failed to get joke", logger.Err(err))
		return "Не удалось получить анекдот, попробуйте позже."
	}
	if len(jokes) == 0 {
		return "Анекдотов пока нет. Загляните позже!"
	}
	return formatJoke(&jokes[0])
}

var topTitles = map[database.TopOrder]string{
	database.TopByLikes:    "Лучшие анекдоты",
	database.TopByViews:    "Самые читаемые анекдоты",
	database.TopByDislikes: "Самые спорные анекдоты",
}

func (b *Bot) topReply(ctx context.Context, args []string) string {
	order := database.TopByLikes
	if len(args) > 0 {
		order = database.TopOrder(strings.ToLower(args[0]))
	}
	title, ok := topTitles[order]
	if !ok {
		return "Неизвестная сортировка. Используйте: /top likes, /top views или /top dislikes"
	}
	return b.listReply(ctx, order, title)
}

func (b *Bot) listReply(ctx context.Context, order database.TopOrder, title string) string {
	jokes, err := b.jokes.Top(ctx, order, listSize)
	if err != nil {
		logger.Error("Failed to get jokes", logger.String("order", string(order)), logger.Err(err))
		return "Не удалось получить анекдоты, попробуйте позже."
	}
	if len(jokes) == 0 {
		return "Анекдотов пока нет. Загляните позже!"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>", title)
	for i := range jokes {
		sb.WriteString("\n\n")
		sb.WriteString(formatJoke(&jokes[i]))
	}
	return sb.String()
}

func (b *Bot) sectionsReply(ctx context.Context) string {
	sections, err := b.sections.List(ctx)
	if err != nil {
		logger.Error("Failed to list sections", logger.Err(err))
		return "Не удалось получить разделы, попробуйте позже."
	}
	if len(sections) == 0 {
		return "Разделов пока нет."
	}

	var sb strings.Builder
	sb.WriteString("<b>Разделы</b>\n")
	for _, s := range sections {
		fmt.Fprintf(&sb, "\n- %s (%d): /joke %s", html.EscapeString(s.Title), s.JokesCount, s.Slug)
	}
	return sb.String()
}

func (b *Bot) statsReply(ctx context.Context) string {
	published, err := b.jokes.CountPublished(ctx)
	if err != nil {
		logger.Error("Failed to count jokes", logger.Err(err))
		return "Не удалось получить статистику"
	}

	generated := unknownCount
	if n, err := b.jokes.CountGenerated(ctx); err != nil {
		logger.Error("Failed to count generated jokes", logger.Err(err))
	} else {
		generated = strconv.Itoa(n)
	}

	sectionCount := unknownCount
	if sections, err := b.sections.List(ctx); err != nil {
		logger.Error("Failed to list sections", logger.Err(err))
	} else {
		sectionCount = strconv.Itoa(len(sections))
	}

	return fmt.Sprintf(
		"<b>Статистика</b>\n\n"+
			"Опубликовано анекдотов: %d\n"+
			"Сгенерировано ИИ: %s\n"+
			"Разделов: %s",
		published, generated, sectionCount,
	)
}
