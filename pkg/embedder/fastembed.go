package embedder

import (
	"context"
	"fmt"
	"runtime"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// Options configures the FastEmbed-backed Provider, adapted from the
// embed.Options (pkg/memory/embed) with the query/passage
// split collapsed: fpengine always embeds full memory content as a
// passage, never as a query (queries are embedded by the same Provider via
// Embed, reusing the passage encoder, since there is no separate
// asymmetric query/document model in the retrieved pack).
type Options struct {
	Model     fastembed.EmbeddingModel
	CacheDir  string
	MaxLength int
	BatchSize int
}

// FastEmbedProvider derives all thirteen views from one base passage
// embedding produced by fastembed-go, the only embedding library present in
// Protocol-Lattice-go-agent's go.mod. Where pkg/memory/embed used the base
// vector directly as the sole memory embedding, fpengine additionally
// projects it into the
// twelve other view spaces via the seeded projections in projections.go.
type FastEmbedProvider struct {
	m  *fastembed.FlagEmbedding
	bs int

	projE2, projE3, projE4   projection
	projE5, projE8           projection // one projection per asymmetric view; halves differ by input text, not matrix
	projE7, projE9, projE10  projection
	projE11                  projection
	projTok                  projection // per-token projection into e12's 128-dim space
}

func NewFastEmbedProvider(ctx context.Context, opt *Options) (*FastEmbedProvider, error) {
	var init *fastembed.InitOptions
	if opt != nil {
		init = &fastembed.InitOptions{
			Model:     opt.Model,
			CacheDir:  opt.CacheDir,
			MaxLength: opt.MaxLength,
		}
	}
	m, err := fastembed.NewFlagEmbedding(init)
	if err != nil {
		return nil, fmt.Errorf("init fastembed model: %w", err)
	}
	bs := 64
	if opt != nil && opt.BatchSize > 0 {
		bs = opt.BatchSize
	}
	if bs > 4*runtime.GOMAXPROCS(0) {
		bs = 4 * runtime.GOMAXPROCS(0)
	}
	const base = 768 // bge-small-en-v1.5 output dim
	return &FastEmbedProvider{
		m:       m,
		bs:      bs,
		projE2:  newProjection(seedE2, base, 512),
		projE3:  newProjection(seedE3, base, 512),
		projE4:  newProjection(seedE4, base, 512),
		projE5:  newProjection(seedE5, base, 768),
		projE7:  newProjection(seedE7, base, 1536),
		projE8:  newProjection(seedE8, base, 384),
		projE9:  newProjection(seedE9, base, 1024),
		projE10: newProjection(seedE10, base, 768),
		projE11: newProjection(seedE11, base, 768),
		projTok: newProjection(seedE12, base, 128),
	}, nil
}

func (p *FastEmbedProvider) Close() error {
	if p.m != nil {
		p.m.Destroy()
	}
	return nil
}

func (p *FastEmbedProvider) Embed(ctx context.Context, content string) (fingerprint.Views, error) {
	base, err := p.embedOne(content)
	if err != nil {
		return fingerprint.Views{}, fmt.Errorf("embed base passage: %w", err)
	}

	cause, effect := content, content
	if content != "" {
		cause, effect = resolveCauseEffect(p, content)
	}
	causeBase, effectBase := base, base
	if cause != content {
		if v, err := p.embedOne(cause); err == nil {
			causeBase = v
		}
	}
	if effect != content {
		if v, err := p.embedOne(effect); err == nil {
			effectBase = v
		}
	}

	source, target := content, content
	sp, ep := content, content
	if content != "" {
		sp, ep = splitSourceTarget(content)
	}
	source, target = sp, ep
	sourceBase, targetBase := base, base
	if source != content {
		if v, err := p.embedOne(source); err == nil {
			sourceBase = v
		}
	}
	if target != content {
		if v, err := p.embedOne(target); err == nil {
			targetBase = v
		}
	}

	tokens := tokenize(content)

	return fingerprint.Views{
		E1:         toE1(base),
		E2:         p.projE2.apply(base),
		E3:         p.projE3.apply(base),
		E4:         p.projE4.apply(base),
		E5AsCause:  p.projE5.apply(causeBase),
		E5AsEffect: p.projE5.apply(effectBase),
		E6:         sparseVector(tokens),
		E7:         p.projE7.apply(base),
		E8AsSource: p.projE8.apply(sourceBase),
		E8AsTarget: p.projE8.apply(targetBase),
		E9:         p.projE9.apply(base),
		E10:        p.projE10.apply(base),
		E11:        p.projE11.apply(base),
		E12:        tokenSequence(p.projTok, base, tokens),
		E13:        expandedSparseVector(tokens),
	}, nil
}

func (p *FastEmbedProvider) embedOne(text string) ([]float32, error) {
	out, err := p.m.PassageEmbed([]string{"passage: " + text}, 1)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fastembed returned no vectors")
	}
	return out[0], nil
}

// toE1 pads or truncates the base 768-dim embedding to e1's 1024 dims; the
// foundation view is wider than the raw model output so it has headroom for
// a future higher-dimensional base model without a schema change.
func toE1(base []float32) []float32 {
	out := make([]float32, 1024)
	copy(out, base)
	return out
}
