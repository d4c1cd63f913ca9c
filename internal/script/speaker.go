/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"storywiki/internal/domain"
)

// Speaker is a character resolved from one declaration of a script line.
type Speaker struct {
	Name       string
	Nickname   string
	Spine      string
	Portrait   string
	Expression string
}

// Resolution lists the characters declared by a script line. Present keeps
// declaration order and holds nil for a bare "#na;NAME" declaration. Speaker
// is the declaration followed by text, or nil. UnknownSpeaker is set when
// the speaking declaration named a character missing from the table.
type Resolution struct {
	Present        []*Speaker
	Speaker        *Speaker
	UnknownSpeaker bool
}

var (
	reDeclaration = regexp.MustCompile(`^\d+;([^;]+);([S_\d]+);?`)
	reSpeaking    = regexp.MustCompile(`^\d+;([^;]+);([S_\d]+);.`)
	reNarrator    = regexp.MustCompile(`#na;([^\n#;]+)(;.+)?`)
	reSpineGroup  = regexp.MustCompile(`(S\d?)_(\d\d)`)
	reBareGroup   = regexp.MustCompile(`S\d?`)
)

// resolve reads the character declarations of a raw script line, one per
// "\n" separated part. Unknown names are warned about once and skipped; only
// failures of the tables themselves are returned.
func (p *Parser) resolve(ctx context.Context, script string) (Resolution, error) {
	var res Resolution
	for _, part := range strings.Split(script, "\n") {
		var token, expression string
		narrator := false
		if m := reDeclaration.FindStringSubmatch(part); m != nil {
			token, expression = m[1], m[2]
		} else if m := reNarrator.FindStringSubmatch(part); m != nil {
			if m[2] == "" {
				res.Present = append(res.Present, nil)
				continue
			}
			token, narrator = m[1], true
		} else {
			continue
		}

		c, err := p.lookup.Character(token)
		if errors.Is(err, domain.ErrNotFound) {
			p.warnOnce(ctx, &p.missingNames, token, "character name not in table", slog.String("token", token), slog.Any("err", err))
			if narrator || reSpeaking.MatchString(part) {
				res.UnknownSpeaker = true
			}
			continue
		}
		if err != nil {
			return Resolution{}, err
		}

		sp := &Speaker{Name: c.Name, Nickname: c.Nickname, Spine: c.Spine, Portrait: c.Portrait, Expression: expression}
		if narrator {
			sp.Spine, sp.Portrait = "", ""
		}
		if strings.TrimSpace(sp.Spine) == "" && sp.Portrait != "" {
			sp.Spine = sp.Portrait
		}
		if err := p.placeSprite(ctx, sp); err != nil {
			return Resolution{}, err
		}

		if narrator || reSpeaking.MatchString(part) {
			res.Speaker = sp
		}
		res.Present = append(res.Present, sp)
	}
	return res, nil
}

// placeSprite checks the sprite of sp against the published sprite files,
// applying the diorama fallback, the spine group suffix and the expression
// fallback in that order.
func (p *Parser) placeSprite(ctx context.Context, sp *Speaker) error {
	if sp.Spine != "" {
		_, err := p.lookup.Expressions(sp.Spine)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			diorama := sp.Spine + " diorama"
			if _, derr := p.lookup.Expressions(diorama); derr == nil {
				sp.Spine = diorama
			} else if errors.Is(derr, domain.ErrNotFound) {
				p.warnOnce(ctx, &p.missingSpines, sp.Spine, "spine not found", slog.String("spine", sp.Spine))
			} else {
				return derr
			}
		default:
			return err
		}
	}

	if strings.Contains(sp.Expression, "S") {
		group, expression := reBareGroup.FindString(sp.Expression), "00"
		if m := reSpineGroup.FindStringSubmatch(sp.Expression); m != nil {
			group, expression = m[1], m[2]
		}
		sp.Expression = expression
		if sp.Spine != "" {
			sp.Spine += " " + group
		}
	}

	if sp.Spine == "" || sp.Expression == "" {
		return nil
	}
	exprs, err := p.lookup.Expressions(sp.Spine)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("expressions of %s: %w", sp.Spine, err)
	}
	for _, e := range exprs {
		if e == sp.Expression {
			return nil
		}
	}
	if len(exprs) > 0 {
		p.log.DebugContext(ctx, "expression does not exist, substituting",
			slog.String("spine", sp.Spine), slog.String("expression", sp.Expression), slog.String("substitute", exprs[0]))
		sp.Expression = exprs[0]
	}
	return nil
}
