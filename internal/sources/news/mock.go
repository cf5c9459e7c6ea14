package news

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/iceymoss/newsfeed/pkg/utils"

	"github.com/google/uuid"
)

type template struct {
	source, author, title, description, content string
}

var mockTemplates = map[string][]template{
	"technology": {
		{"TechCrunch", "Sarah Johnson",
			"AI Startup Raises $50M to Revolutionize Code Generation",
			"New AI-powered development tool promises to increase developer productivity by 40%",
			"A promising AI startup has secured $50 million in Series B funding to expand its code generation platform. The tool uses advanced language models to help developers write code faster and with fewer bugs. Early adopters report significant productivity gains..."},
		{"Wired", "Mike Chen",
			"Quantum Computing Breakthrough Achieves New Record",
			"Scientists demonstrate quantum supremacy with 1000-qubit processor",
			"Researchers at a leading quantum computing lab have achieved a major breakthrough by demonstrating a 1000-qubit quantum processor that maintains coherence for unprecedented durations. This advancement brings practical quantum computing closer to reality..."},
		{"The Verge", "Lisa Park",
			"New Smartphone Features Revolutionary Camera System",
			"Latest flagship phone introduces AI-powered photography features",
			"The latest smartphone from a major manufacturer features an innovative camera system that uses AI to automatically adjust settings for optimal photos. The device has received praise from early reviewers for its low-light performance and portrait mode..."},
	},
	"business": {
		{"Wall Street Journal", "David Martinez",
			"Tech Giants Report Strong Q4 Earnings",
			"Major technology companies exceed analyst expectations in quarterly results",
			"Several technology giants have reported better-than-expected earnings for the fourth quarter, driven by strong cloud computing and advertising revenues. Analysts are optimistic about continued growth in the sector..."},
		{"Bloomberg", "Jennifer Lee",
			"Startup Ecosystem Shows Signs of Recovery",
			"Venture capital funding increases for first time in six quarters",
			"After a challenging period, the startup ecosystem is showing signs of recovery with venture capital funding increasing by 15% this quarter. Investors are particularly interested in AI, climate tech, and healthcare startups..."},
	},
	"sports": {
		{"ESPN", "Tom Brady",
			"Championship Game Sets New Viewership Record",
			"Thrilling overtime finish captivates millions of fans worldwide",
			"Last night's championship game has set a new viewership record with over 150 million people tuning in globally. The game went into overtime and featured several dramatic plays that will be remembered for years to come..."},
		{"Sports Illustrated", "Maria Rodriguez",
			"Young Athlete Signs Historic Contract",
			"Rising star becomes highest-paid player in league history",
			"A young phenom has signed a groundbreaking contract worth $500 million over 10 years, making them the highest-paid player in the league's history. The deal includes performance incentives and endorsement opportunities..."},
	},
	"health": {
		{"HealthLine", "Dr. Emily Watson",
			"New Study Links Exercise to Improved Mental Health",
			"Research shows 30 minutes of daily activity reduces anxiety and depression",
			"A comprehensive study involving 10,000 participants has found that just 30 minutes of moderate exercise daily can significantly reduce symptoms of anxiety and depression. Researchers recommend a combination of aerobic and strength training..."},
		{"Medical News Today", "Dr. James Wilson",
			"Breakthrough Treatment Shows Promise for Chronic Disease",
			"Clinical trials demonstrate 70% effectiveness rate",
			"A new treatment for a chronic condition has shown remarkable results in Phase 3 clinical trials, with a 70% effectiveness rate and minimal side effects. The treatment is expected to receive FDA approval within the next year..."},
	},
	"science": {
		{"Nature", "Dr. Robert Chang",
			"Scientists Discover New Earth-Like Exoplanet",
			"Planet located in habitable zone of distant star system",
			"Astronomers have discovered a new exoplanet that shares many characteristics with Earth, including a similar size and orbit within its star's habitable zone. Further observations will determine if it has an atmosphere suitable for life..."},
		{"Science Daily", "Dr. Amanda Foster",
			"New Species of Ancient Dinosaur Identified",
			"Fossil discovery rewrites understanding of dinosaur evolution",
			"Paleontologists have identified a new species of dinosaur from fossils discovered in a remote location. The finding provides new insights into how dinosaurs evolved and adapted to changing environments millions of years ago..."},
	},
	"entertainment": {
		{"Variety", "Jessica Brown",
			"Blockbuster Film Breaks Box Office Records",
			"Latest superhero movie earns $300M in opening weekend",
			"The highly anticipated superhero film has shattered box office records with a $300 million opening weekend globally. Critics praise the film's stunning visual effects and compelling storyline, and sequel plans are already underway..."},
	},
}

var mockImages = map[string]string{
	"technology":    "https://images.unsplash.com/photo-1518770660439-4636190af475",
	"business":      "https://images.unsplash.com/photo-1460925895917-afdab827c52f",
	"sports":        "https://images.unsplash.com/photo-1461896836934-ffe607ba8211",
	"health":        "https://images.unsplash.com/photo-1505751172876-fa1923c5c528",
	"science":       "https://images.unsplash.com/photo-1532094349884-543bc11b234d",
	"entertainment": "https://images.unsplash.com/photo-1574267432644-f88b7e1ad8cb",
}

const fallbackSlug = "technology"

// Mock 离线新闻源，不做任何 I/O
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

type MockOption func(*Mock)

// WithRand 测试里传固定种子
func WithRand(r *rand.Rand) MockOption {
	return func(m *Mock) { m.rnd = r }
}

func WithClock(now func() time.Time) MockOption {
	return func(m *Mock) { m.now = now }
}

func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) Name() string { return "mock" }

// FetchNews 每个分类生成 ceil(limit/n) 条，整体截断到 limit
func (m *Mock) FetchNews(_ context.Context, categories []CategoryRef, limit int) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	per := utils.CeilDiv(limit, len(categories))
	articles := make([]RawArticle, 0, per*len(categories))
	for _, c := range categories {
		templates, ok := mockTemplates[c.Slug]
		if !ok {
			templates = mockTemplates[fallbackSlug]
		}
		image, ok := mockImages[c.Slug]
		if !ok {
			image = mockImages[fallbackSlug]
		}

		for i := 0; i < per; i++ {
			t := templates[m.rnd.Intn(len(templates))]
			hours := m.rnd.Intn(48) + 1
			articles = append(articles, RawArticle{
				Source:      RawSource{Name: t.source},
				Author:      strPtr(t.author),
				Title:       t.title,
				Description: strPtr(t.description),
				URL:         "https://example.com/article-" + uuid.NewString(),
				URLToImage:  strPtr(image),
				PublishedAt: m.now().Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339),
				Content:     strPtr(t.content),
			})
		}
	}

	articles = truncate(articles, limit)
	return &Result{Status: StatusOK, TotalResults: len(articles), Articles: articles}, nil
}
